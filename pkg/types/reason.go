package types

// RejectReason is the reason code recorded when a candidate or reply is
// dropped. Rejections are expected control flow, not errors.
type RejectReason string

const (
	ReasonDeletedOrRemoved RejectReason = "deleted_or_removed"
	ReasonBotAuthor        RejectReason = "bot_author"
	ReasonAd               RejectReason = "ad"
	ReasonNonText          RejectReason = "non_text"
	ReasonAdultContent     RejectReason = "adult_content"
	ReasonBelowThreshold   RejectReason = "below_threshold"
	ReasonShowcaseVeto     RejectReason = "showcase_veto"
	ReasonTooShort         RejectReason = "too_short"
	ReasonLowScore         RejectReason = "low_score"
	ReasonDuplicate        RejectReason = "duplicate"
	ReasonOrphanReply      RejectReason = "orphan_reply"
)

// Rejection stages
const (
	StagePost  = "post"
	StageReply = "reply"
)
