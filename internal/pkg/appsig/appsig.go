// Package appsig computes the 11 character app hash that SMS Retriever
// messages must end with to be routed to an app.
package appsig

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// HashLen is the length of an app hash.
const HashLen = 11

const hashedBytes = 9

// ErrInputRequired is returned when the package name or certificate is blank.
var ErrInputRequired = errors.New("appsig: package name and signing certificate are required")

// Compute derives the app hash from the package name and the hex-encoded
// signing certificate: the first 9 bytes of sha256("<package> <cert>"),
// unpadded base64, truncated to 11 characters.
func Compute(packageName, certHex string) (string, error) {
	packageName = strings.TrimSpace(packageName)
	certHex = strings.TrimSpace(certHex)
	if packageName == "" || certHex == "" {
		return "", ErrInputRequired
	}

	sum := sha256.Sum256([]byte(packageName + " " + certHex))
	return base64.RawStdEncoding.EncodeToString(sum[:hashedBytes])[:HashLen], nil
}
