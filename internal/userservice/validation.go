package userservice

import (
	"unicode/utf8"

	"github.com/sushihentaime/bloglist/internal/common"
)

func validateUsername(v *common.Validator, username string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(v.CheckStringLength(username, 3, 50), "username", "must be between 3 and 50 characters long")
}

func validateName(v *common.Validator, name string) {
	v.Check(v.CheckStringLength(name, 0, 100), "name", "must not be more than 100 characters long")
}

func validatePassword(v *common.Validator, password string) {
	v.Check(password != "", "password", "must be provided")
	v.Check(utf8.RuneCountInString(password) >= 3, "password", "must be at least 3 characters long")
	v.Check(len(password) <= MaxPasswordBytes, "password", "must not be more than 72 bytes long")
}

// validateCredentials only checks presence; a login never reveals the
// registration rules.
func validateCredentials(v *common.Validator, username, password string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(password != "", "password", "must be provided")
}
