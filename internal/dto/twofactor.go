package dto

type TwoFactorSetupRequest struct {
	Method   string `json:"method"`
	Password string `json:"password"`
}

type TwoFactorConfirmRequest struct {
	Code string `json:"code"`
}

type TwoFactorTeardownRequest struct {
	Password string `json:"password"`
}

// TwoFactorSetupResponse carries the TOTP enrollment material, or for the
// email method just the dispatch acknowledgement. DevCode is exposed by the
// handler outside production only.
type TwoFactorSetupResponse struct {
	Method     string `json:"method"`
	Secret     string `json:"secret,omitempty"`
	OTPAuthURL string `json:"otpauthUrl,omitempty"`
	QRCode     string `json:"qrCode,omitempty"`
	Message    string `json:"message"`
	DevCode    string `json:"devCode,omitempty"`
	ExpiresIn  string `json:"expiresIn,omitempty"`
}
