package auth

// AccessClaims is the payload of the HS256 access token issued by the account
// service. This core only verifies; issuance and refresh live elsewhere.
type AccessClaims struct {
	Sub string `json:"sub"` // owner id
	Iat int64  `json:"iat"` // created at
	Exp int64  `json:"exp"` // expires at
}
