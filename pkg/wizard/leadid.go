package wizard

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const leadIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewLeadID returns a correlation id of the form lead_<unix millis>_<9 base-36
// chars>. It ties the two submissions together and is not a security token.
func NewLeadID(now time.Time, random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	suffix := make([]byte, 9)
	base := big.NewInt(int64(len(leadIDAlphabet)))
	for i := range suffix {
		n, err := rand.Int(random, base)
		if err != nil {
			return "", fmt.Errorf("generate lead id: %w", err)
		}
		suffix[i] = leadIDAlphabet[n.Int64()]
	}
	return fmt.Sprintf("lead_%d_%s", now.UnixMilli(), suffix), nil
}
