package email

const (
	subjectInterestReceived     = "We have received your interest"
	subjectReservationFmt       = "Reservation confirmed for %s"
	subjectCommitmentFmt        = "Commitment confirmed for %s"
	subjectAgreementSignedFmt   = "Purchase agreement signed for %s"
	subjectDepositReceiptFmt    = "Deposit received for %s"
	subjectHandoverStartedFmt   = "Handover started for %s"
	subjectHandoverCompletedFmt = "Handover complete for %s"
)
