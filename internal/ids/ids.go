package ids

import (
	"crypto/rand"
	"math/big"
)

// Token draws length characters uniformly from alphabet.
func Token(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	limit := big.NewInt(int64(len(alphabet)))
	token := make([]byte, length)
	for i := range token {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic("ids: read random: " + err.Error())
		}
		token[i] = alphabet[n.Int64()]
	}
	return string(token)
}
