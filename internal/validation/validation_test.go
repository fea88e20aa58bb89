package validation

import "testing"

func TestValidateAddress(t *testing.T) {
	valid := []string{
		"0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
		"0x0000000000000000000000000000000000000000",
	}
	for _, addr := range valid {
		if err := ValidateAddress(addr); err != nil {
			t.Errorf("ValidateAddress(%s): unexpected error %v", addr, err)
		}
	}

	invalid := []string{
		"",
		"0x123",
		"7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
		"0xZZ50d5630B4cF539739dF2C5dAcb4c659F2488D1",
	}
	for _, addr := range invalid {
		if err := ValidateAddress(addr); err == nil {
			t.Errorf("ValidateAddress(%q): expected error", addr)
		}
	}
}

func TestValidateTxHash(t *testing.T) {
	valid := "0x" + "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"
	if err := ValidateTxHash(valid); err != nil {
		t.Errorf("unexpected error for valid hash: %v", err)
	}

	invalid := []string{"", "0xabc", valid + "ff"}
	for _, hash := range invalid {
		if err := ValidateTxHash(hash); err == nil {
			t.Errorf("ValidateTxHash(%q): expected error", hash)
		}
	}
}

func TestValidateAddressList(t *testing.T) {
	good := []string{"0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"}
	if err := ValidateAddressList(good); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateAddressList([]string{"0xbad"}); err == nil {
		t.Error("expected error for malformed address")
	}
	if err := ValidateAddressList(nil); err != nil {
		t.Errorf("empty list must be valid, got %v", err)
	}
}
