// Package fingerprint derives content digests from guest data.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/okian/guestrank/internal/domain/model"
)

// Separator joins fields before hashing. The ASCII unit separator does not
// occur in names, addresses or free text.
const Separator = "\x1f"

// Fingerprint returns the lowercase hex SHA-256 of the importance-relevant
// guest fields in fixed order: first name, last name, email, company,
// job title, notes. Identifier, phone, address and organization are ignored.
func Fingerprint(g model.Guest) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		g.FirstName,
		g.LastName,
		g.Email,
		g.Company,
		g.JobTitle,
		g.Notes,
	}, Separator)))
	return hex.EncodeToString(sum[:])
}
