package auth

import "golang.org/x/crypto/md4"

// md4 hashes data with MD4, used by NTLMv2 to turn the UTF-16LE password
// into the key material NTOWFv2 derives from (MS-NLMP 3.3.1).
func md4(data []byte) []byte {
	h := md4.New()
	h.Write(data)
	return h.Sum(nil)
}
