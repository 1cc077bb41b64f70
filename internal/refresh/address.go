package refresh

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// decodeAddress validates a Solana pubkey: base58, exactly 32 bytes.
func decodeAddress(addr string) ([]byte, error) {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("address is %d bytes, want 32", len(decoded))
	}
	return decoded, nil
}

// isOnCurve reports whether the pubkey is a valid ed25519 point.
// PDAs are off-curve and never carry SPL mint metadata, so the
// refresher skips them instead of burning a rate-limited call.
func isOnCurve(pubkey []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(pubkey)
	return err == nil
}
