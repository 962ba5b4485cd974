package billing

import (
	"errors"

	"github.com/ttacon/libphonenumber"
)

const DefaultPhoneRegion = "IN"

var ErrInvalidPhone = errors.New("phone number is not valid")

// NormalizePhone returns the E.164 form of a phone number so that
// "98765 43210" and "+91 98765-43210" key the same customer.
func NormalizePhone(raw, region string) (string, error) {
	num, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}
