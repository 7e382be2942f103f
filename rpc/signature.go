package rpc

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"dipindex/crypto"
	"dipindex/native/index"
)

// SignatureHeader carries a 65 byte secp256k1 signature over keccak256 of the
// request payload.
const SignatureHeader = "X-Dip-Signature"

// verifySignature checks that header signs payload on behalf of signer. Every
// submitted request must carry one.
func verifySignature(payload []byte, header, signer string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return errSignatureRequired
	}
	sig, err := hexutil.Decode(header)
	if err != nil {
		return errSignatureInvalid
	}
	recovered, err := crypto.RecoverSigner(payload, sig)
	if err != nil {
		return errSignatureInvalid
	}
	claimed, err := index.ParseParticipant(signer)
	if err != nil {
		return fmt.Errorf("%w: signer: %v", index.ErrInvalidRequest, err)
	}
	if recovered.Raw() != claimed {
		return errSignatureMismatch
	}
	return nil
}

// SignRequest produces the header value for payload. Clients use it to sign
// request bodies.
func SignRequest(key *crypto.PrivateKey, payload []byte) (string, error) {
	sig, err := key.SignPayload(payload)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}
