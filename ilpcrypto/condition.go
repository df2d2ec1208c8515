// Package ilpcrypto implements the condition/fulfillment derivation and
// STREAM packet encryption the connection state machine relies on:
// deriving a fulfillment from the shared secret and an encrypted STREAM
// payload, and sealing/opening that payload itself.
package ilpcrypto

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/interledger-go/ilp-stream/ilprand"
)

// fulfillmentGenerationString keys the fulfillment HMAC schedule derived
// from the shared secret.
var fulfillmentGenerationString = []byte("ilp_stream_fulfillment")

// GenerateFulfillment derives the fulfillment preimage for an encrypted
// STREAM payload: HMAC-SHA256(HMAC-SHA256(sharedSecret, "ilp_stream_fulfillment"), encryptedData).
func GenerateFulfillment(sharedSecret, encryptedData []byte) [32]byte {
	key := hmac.New(sha256.New, sharedSecret)
	key.Write(fulfillmentGenerationString)
	fulfillmentKey := key.Sum(nil)

	mac := hmac.New(sha256.New, fulfillmentKey)
	mac.Write(encryptedData)
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// FulfillmentToCondition derives the condition a Prepare commits to from
// a fulfillment: plain SHA-256 of the preimage.
func FulfillmentToCondition(fulfillment [32]byte) [32]byte {
	return sha256.Sum256(fulfillment[:])
}

// GenerateCondition derives the condition for an outgoing Prepare
// directly from the shared secret and the encrypted STREAM payload it
// carries.
func GenerateCondition(sharedSecret, encryptedData []byte) [32]byte {
	return FulfillmentToCondition(GenerateFulfillment(sharedSecret, encryptedData))
}

// RandomCondition returns a condition that deliberately will not match
// any fulfillment, used for the client's unfulfillable handshake Prepare.
func RandomCondition() [32]byte {
	var out [32]byte
	if _, err := ilprand.Reader.Read(out[:]); err != nil {
		panic(err)
	}
	return out
}
