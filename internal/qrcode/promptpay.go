// Package qrcode implements the EMVCo QR Code Specification for Payment
// Systems subset used by Thai PromptPay: flat TLV parsing, the
// merchant-account-info sub-TLV carrying the PromptPay Application
// Identifier, and CRC-16/CCITT-FALSE payload integrity.
package qrcode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors returned by Parse. Wrapped with fmt.Errorf for context;
// callers should use errors.Is against these.
var (
	ErrInvalidFormat    = errors.New("qrcode: invalid format")
	ErrNotPromptPay     = errors.New("qrcode: not a promptpay payload")
	ErrInvalidAccountID = errors.New("qrcode: invalid account id")
)

const (
	tagPayloadFormat      = "00"
	tagPOIMethod          = "01"
	tagMerchantAccount29  = "29"
	tagMerchantAccount30  = "30"
	tagCurrency           = "53"
	tagAmount             = "54"
	tagCountry            = "58"
	tagMerchantName       = "59"
	tagMerchantCity       = "60"
	tagCRC                = "63"

	tagPromptPayAID   = "00"
	promptPayAIDValue = "A000000677010111"
	tagAccountPhone   = "01"
	tagAccountNatID   = "02"

	payloadFormatValue = "01"
	poiStatic          = "11"
	poiDynamic         = "12"

	currencyTHB = "764"
	countryTH   = "TH"

	minPayloadLength = 20
)

// AccountType distinguishes the two PromptPay identifier shapes.
type AccountType string

const (
	AccountTypePhone      AccountType = "phone"
	AccountTypeNationalID AccountType = "national_id"
)

// PromptPayData is the decoded content of a PromptPay QR payload.
type PromptPayData struct {
	AccountID    string
	AccountType  AccountType
	MerchantName string
	Amount       *string // decimal THB string; nil when the QR carries no fixed amount
	Currency     string
	Country      string
	RawPayload   string
	IsValid      bool // CRC agreement; independent of parse success
}

type tlvRecord struct {
	Tag   string
	Value string
}

// parseTLV walks a flat "TTLLVV..." stream. Tag and length are each exactly
// two ASCII digits; a length/overrun mismatch is InvalidFormat.
func parseTLV(s string) ([]tlvRecord, error) {
	var records []tlvRecord
	i := 0
	for i < len(s) {
		if i+4 > len(s) {
			return nil, fmt.Errorf("%w: truncated tag/length at offset %d", ErrInvalidFormat, i)
		}
		tag := s[i : i+2]
		lengthStr := s[i+2 : i+4]
		length, err := strconv.Atoi(lengthStr)
		if err != nil {
			return nil, fmt.Errorf("%w: non-numeric length %q at offset %d", ErrInvalidFormat, lengthStr, i+2)
		}
		start := i + 4
		end := start + length
		if end > len(s) {
			return nil, fmt.Errorf("%w: value overruns payload for tag %q", ErrInvalidFormat, tag)
		}
		records = append(records, tlvRecord{Tag: tag, Value: s[start:end]})
		i = end
	}
	return records, nil
}

// Parse decodes a PromptPay QR payload. CRC disagreement does not fail the
// parse — it is reported via IsValid so callers (the scan_qr tool) can
// decide their own accept/reject policy.
func Parse(raw string) (PromptPayData, error) {
	payload := strings.Join(strings.Fields(raw), "")
	if len(payload) < minPayloadLength {
		return PromptPayData{}, fmt.Errorf("%w: payload shorter than %d characters", ErrInvalidFormat, minPayloadLength)
	}

	records, err := parseTLV(payload)
	if err != nil {
		return PromptPayData{}, err
	}

	data := PromptPayData{
		RawPayload: payload,
		Currency:   currencyTHB,
		Country:    countryTH,
	}

	var merchantTLV string
	for _, rec := range records {
		switch rec.Tag {
		case tagPayloadFormat:
			if rec.Value != payloadFormatValue {
				return PromptPayData{}, fmt.Errorf("%w: unexpected payload format %q", ErrInvalidFormat, rec.Value)
			}
		case tagMerchantAccount29, tagMerchantAccount30:
			merchantTLV = rec.Value
		case tagCurrency:
			data.Currency = rec.Value
		case tagAmount:
			amount := rec.Value
			data.Amount = &amount
		case tagCountry:
			data.Country = rec.Value
		case tagMerchantName:
			data.MerchantName = rec.Value
		}
	}

	if merchantTLV == "" {
		return PromptPayData{}, fmt.Errorf("%w: missing merchant-account-info", ErrNotPromptPay)
	}

	accountID, accountType, err := parseMerchantAccount(merchantTLV)
	if err != nil {
		return PromptPayData{}, err
	}
	data.AccountID = accountID
	data.AccountType = accountType

	data.IsValid = verifyCRC(payload)

	return data, nil
}

// parseMerchantAccount re-parses the merchant-account-info sub-TLV,
// requiring the PromptPay AID and normalizing the account identifier.
func parseMerchantAccount(sub string) (string, AccountType, error) {
	records, err := parseTLV(sub)
	if err != nil {
		return "", "", fmt.Errorf("%w: malformed merchant-account-info", ErrInvalidFormat)
	}

	var aid, phone, natID string
	for _, rec := range records {
		switch rec.Tag {
		case tagPromptPayAID:
			aid = rec.Value
		case tagAccountPhone:
			phone = rec.Value
		case tagAccountNatID:
			natID = rec.Value
		}
	}

	if aid != promptPayAIDValue {
		return "", "", fmt.Errorf("%w: AID %q is not the PromptPay identifier", ErrNotPromptPay, aid)
	}

	var rawID string
	switch {
	case natID != "":
		rawID = natID
	case phone != "":
		rawID = phone
	default:
		return "", "", fmt.Errorf("%w: no account identifier sub-tag", ErrInvalidAccountID)
	}

	id := rawID
	if strings.HasPrefix(id, "00") {
		if len(id) < 4 {
			return "", "", fmt.Errorf("%w: country-prefixed identifier too short", ErrInvalidAccountID)
		}
		id = id[4:]
	}

	switch len(id) {
	case 13:
		return id, AccountTypeNationalID, nil
	case 10:
		return id, AccountTypePhone, nil
	case 9:
		return "0" + id, AccountTypePhone, nil
	default:
		return "", "", fmt.Errorf("%w: normalized identifier length %d", ErrInvalidAccountID, len(id))
	}
}

// Generate serializes a PromptPay payload for the given account identifier
// and optional fixed amount. amount, when non-nil, must already be a
// decimal string with at most 2 fraction digits (e.g. "150.00").
func Generate(accountID string, amount *string) (string, error) {
	accountType, normalized, err := classifyAccountID(accountID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("000201")

	if amount != nil {
		b.WriteString("010212")
	} else {
		b.WriteString("010211")
	}

	var aidField string
	switch accountType {
	case AccountTypePhone:
		id := strings.TrimPrefix(normalized, "0")
		aidField = tlv(tagPromptPayAID, promptPayAIDValue) + tlv(tagAccountPhone, "0066"+id)
	case AccountTypeNationalID:
		aidField = tlv(tagPromptPayAID, promptPayAIDValue) + tlv(tagAccountNatID, "00TH"+normalized)
	}
	b.WriteString(tlv(tagMerchantAccount29, aidField))

	b.WriteString(tlv(tagCurrency, currencyTHB))

	if amount != nil {
		b.WriteString(tlv(tagAmount, *amount))
	}

	b.WriteString(tlv(tagCountry, countryTH))
	b.WriteString(tagCRC + "04")

	withoutCRC := b.String()
	crc := computeCRC(withoutCRC)
	return withoutCRC + crc, nil
}

func classifyAccountID(id string) (AccountType, string, error) {
	switch len(id) {
	case 13:
		return AccountTypeNationalID, id, nil
	case 10:
		return AccountTypePhone, id, nil
	case 9:
		return AccountTypePhone, "0" + id, nil
	default:
		return "", "", fmt.Errorf("%w: account id length %d", ErrInvalidAccountID, len(id))
	}
}

func tlv(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}
