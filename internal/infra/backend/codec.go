package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"console/internal/domain/entity"
	"console/internal/errors"
)

// Identifier field names observed across backend revisions, in resolution
// order. The same record has been seen carrying any of these spellings.
var productIDKeys = []string{"id", "Id", "ID", "productId", "productID", "ProductId"}

var merchantIDKeys = []string{"merchantId", "merchantID", "MerchantId"}

// resolveID walks the ordered key fallback and returns the first field that
// parses as an integer identifier. ok is false when no key resolves, which
// callers must treat as a data fault rather than identifier zero.
func resolveID(raw map[string]json.RawMessage, keys []string) (int64, bool) {
	for _, key := range keys {
		value, present := raw[key]
		if !present {
			continue
		}
		if id, err := parseFlexInt(value); err == nil {
			return id, true
		}
	}

	return 0, false
}

// parseFlexInt accepts a JSON number or a numeric string, because the backend
// has served identifiers in both representations.
func parseFlexInt(raw json.RawMessage) (int64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, errors.New("empty identifier")
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, errors.Wrap(err, "unquote identifier")
		}
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)

		return id, errors.Wrap(err, "parse identifier string")
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return 0, errors.Wrap(err, "parse identifier number")
	}

	id, err := n.Int64()

	return id, errors.Wrap(err, "identifier is not an integer")
}

// parseFlexFloat accepts a JSON number or a numeric string.
func parseFlexFloat(raw json.RawMessage) (float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, errors.New("empty number")
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, errors.Wrap(err, "unquote number")
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)

		return f, errors.Wrap(err, "parse number string")
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return 0, errors.Wrap(err, "parse number")
	}

	return f, nil
}

func parseString(raw map[string]json.RawMessage, key string) string {
	value, present := raw[key]
	if !present {
		return ""
	}

	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return ""
	}

	return s
}

func parseTime(raw map[string]json.RawMessage, key string) time.Time {
	value := parseString(raw, key)
	if value == "" {
		return time.Time{}
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}

	return time.Time{}
}

// decodeProduct maps one raw product record onto the entity. A record whose
// identifier resolves to none of the known field names comes back with ID
// zero; the coordinator surfaces those as data errors on mutation attempts
// instead of silently dropping them.
func decodeProduct(raw json.RawMessage) (entity.Product, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return entity.Product{}, errors.Wrap(err, "decode product record")
	}

	product := entity.Product{
		Name:      parseString(fields, "name"),
		CreatedAt: parseTime(fields, "createdAt"),
	}

	if id, ok := resolveID(fields, productIDKeys); ok {
		product.ID = id
	}
	if merchantID, ok := resolveID(fields, merchantIDKeys); ok {
		product.MerchantID = merchantID
	}
	if rawPrice, present := fields["price"]; present {
		if price, err := parseFlexFloat(rawPrice); err == nil {
			product.Price = price
		}
	}

	return product, nil
}

// decodeMerchant maps the merchant object of an auth response.
func decodeMerchant(raw json.RawMessage) (entity.Merchant, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return entity.Merchant{}, errors.Wrap(err, "decode merchant record")
	}

	id, ok := resolveID(fields, merchantIDKeys)
	if !ok {
		return entity.Merchant{}, errors.New("merchant record has no resolvable identifier")
	}

	return entity.Merchant{
		ID:    id,
		Name:  parseString(fields, "name"),
		Email: parseString(fields, "email"),
	}, nil
}

// decodeTransaction maps one report row. Unknown statuses collapse to
// StatusUnknown rather than failing the whole result set.
func decodeTransaction(raw json.RawMessage) (entity.Transaction, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return entity.Transaction{}, errors.Wrap(err, "decode transaction record")
	}

	tx := entity.Transaction{
		ID:        parseString(fields, "transactionId"),
		Status:    entity.NormalizeStatus(parseString(fields, "status")),
		CreatedAt: parseTime(fields, "createdAt"),
	}

	if rawAmount, present := fields["totalAmount"]; present {
		if amount, err := parseFlexFloat(rawAmount); err == nil {
			tx.TotalAmount = amount
		}
	}

	return tx, nil
}
