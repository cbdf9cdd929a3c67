// Package sanitizer normalizes free-text input before validation and storage.
//
// Every function is idempotent and never fails: invalid input comes back as an
// empty string or an empty slice.
//
// Normalization includes:
//   - Names and specialties: collapse whitespace, trim leading/trailing spaces
//   - Emails and symptoms: as above, lowercased
//   - Free text (reasons, notes): trimmed, inner line breaks kept
//   - Slices: remove duplicates and empty values after normalization
package sanitizer
