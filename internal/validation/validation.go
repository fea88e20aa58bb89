package validation

import (
	"errors"
	"regexp"
)

var (
	addressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	txHashRegex  = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
)

// ValidateAddress validates an EVM address format.
func ValidateAddress(address string) error {
	if address == "" {
		return errors.New("address cannot be empty")
	}
	if !addressRegex.MatchString(address) {
		return errors.New("invalid address format")
	}
	return nil
}

// ValidateTxHash validates a transaction hash format.
func ValidateTxHash(hash string) error {
	if hash == "" {
		return errors.New("transaction hash cannot be empty")
	}
	if !txHashRegex.MatchString(hash) {
		return errors.New("invalid transaction hash format")
	}
	return nil
}

// ValidateAddressList validates every address of an allow-list.
func ValidateAddressList(addresses []string) error {
	for _, addr := range addresses {
		if err := ValidateAddress(addr); err != nil {
			return errors.New("invalid address in list: " + addr)
		}
	}
	return nil
}
