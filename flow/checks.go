package flow

import (
	"strings"

	"complaintbot/flow/validate"
)

func nonEmpty(s string) bool { return strings.TrimSpace(s) != "" }

var (
	validateName   = validate.Name
	validatePhone  = validate.Phone
	validateEmail  = validate.Email
	validateDigits = validate.Digits
	validateTxnID  = validate.TransactionID
	validateIFSC   = validate.IFSC
)
