package flow

const (
	msgGreeting = "Welcome to the cyber crime complaint assistant.\n" +
		"What type of incident would you like to report? " +
		"(e.g. Cyber Fraud, Identity Theft, Online Harassment)"
	msgMoneyLossPrompt = "Hello! Did you suffer a money loss case?"
	msgPortalRedirect  = "To file or track a non-financial complaint, please use the portal: %s"

	msgNamePrompt        = "Please enter your full name:"
	msgNameRetry         = "Invalid name. Please use letters and spaces only (2-50 characters):"
	msgAddressPrompt     = "Enter your address:"
	msgAddressRetry      = "Address cannot be empty. Please enter your address:"
	msgPhonePrompt       = "Enter your registered phone number:"
	msgPhoneRetry        = "Invalid phone number. Please enter 10-15 digits:"
	msgEmailPrompt       = "Enter your email address:"
	msgEmailRetry        = "Invalid email address. Please try again:"
	msgDescriptionPrompt = "Describe the incident in a few sentences:"
	msgDescriptionRetry  = "Description cannot be empty. Please describe the incident:"
	msgCategoryRetry     = "Please tell us the incident type (e.g. Cyber Fraud):"
	msgEvidencePrompt    = "You can attach an evidence screenshot or document now, or reply \"skip\" to continue:"
	msgEvidenceRetry     = "Please attach a file, or reply \"skip\" to continue:"
	msgIDProofPrompt     = "Please attach a photo of your ID proof, or reply \"skip\" to continue:"
	msgTxnCountPrompt    = "How many fraudulent transactions were there? (digits only)"
	msgTxnCountRetry     = "Please reply with digits only:"
	msgTxnIDPrompt       = "Enter the transaction ID (at least 8 characters):"
	msgTxnIDRetry        = "Transaction ID must be at least 8 characters. Please try again:"
	msgIFSCPrompt        = "Enter your bank branch IFSC code (e.g. SBIN0001234):"
	msgIFSCRetry         = "Invalid IFSC code. Format is 4 letters, a zero, then 6 characters (e.g. SBIN0001234):"

	msgReviewPrompt     = "Your complaint draft is ready. Would you like to edit any field before submitting?"
	msgFieldPicker      = "Which field would you like to change? Reply with one of: name, address, phone, email, description"
	msgConfirmation     = "Your complaint has been submitted. Your complaint ID is %s. We will send a confirmation shortly."
	msgAttachmentSaved  = "Attachment received."
	msgDocumentCaption  = "Here is your complaint report."
	msgDocumentName     = "ComplaintReport.pdf"
	msgGenericFailure   = "Something went wrong on our side. Please try again."
	msgDraftNotFound    = "We could not find your complaint draft. Let's start over."
	msgReviewRetry      = "Please reply yes or no."
)

// promptFor returns the question that asks the user for the input the
// given step waits on.
func promptFor(s Step) string {
	switch s {
	case StepAwaitCategory:
		return msgGreeting
	case StepAwaitName:
		return msgNamePrompt
	case StepAwaitAddress:
		return msgAddressPrompt
	case StepAwaitPhone:
		return msgPhonePrompt
	case StepAwaitEmail:
		return msgEmailPrompt
	case StepAwaitDescription:
		return msgDescriptionPrompt
	case StepAwaitEvidence:
		return msgEvidencePrompt
	case StepAwaitIDProof:
		return msgIDProofPrompt
	case StepAwaitTxnCount:
		return msgTxnCountPrompt
	case StepAwaitTxnID:
		return msgTxnIDPrompt
	case StepAwaitIFSC:
		return msgIFSCPrompt
	}
	return ""
}

func yesNoButtons() []Button {
	return []Button{
		{ID: "yes", Title: "Yes"},
		{ID: "no", Title: "No"},
	}
}
