package billing

// EngagementPayload is a tagged value holding the data a subtotal is
// derived from. Constructors make item/milestone combinations that do
// not match the engagement type unrepresentable.
type EngagementPayload struct {
	engagement EngagementType
	items      []LineItem
	milestones []Milestone
}

// ServiceItems builds the payload for an itemized service invoice.
func ServiceItems(items []LineItem) EngagementPayload {
	return EngagementPayload{engagement: EngagementService, items: items}
}

// ProjectFee builds the payload for a fixed-fee project invoice.
func ProjectFee(fee LineItem) EngagementPayload {
	return EngagementPayload{engagement: EngagementProject, items: []LineItem{fee}}
}

// RetainerFee builds the payload for a fixed recurring retainer invoice.
func RetainerFee(fee LineItem) EngagementPayload {
	return EngagementPayload{engagement: EngagementRetainer, items: []LineItem{fee}}
}

// Milestones builds the payload for a staged milestone invoice.
func Milestones(ms []Milestone) EngagementPayload {
	return EngagementPayload{engagement: EngagementMilestone, milestones: ms}
}

// Engagement returns the payload's billing model.
func (p EngagementPayload) Engagement() EngagementType {
	return p.engagement
}

// Items returns the line items carried by the payload.
func (p EngagementPayload) Items() []LineItem {
	return p.items
}

// MilestoneList returns the milestones carried by the payload.
func (p EngagementPayload) MilestoneList() []Milestone {
	return p.milestones
}

type taxKind int

const (
	taxNone taxKind = iota
	taxGeneric
	taxGST
)

// TaxMode is a tagged tax configuration: no tax, a generic named
// percentage added to the subtotal, or Indian GST. GST and generic tax
// cannot coexist in one value.
type TaxMode struct {
	kind taxKind
	name string
	rate float64
}

// NoTax builds the zero tax mode.
func NoTax() TaxMode {
	return TaxMode{}
}

// GenericTax builds a named percentage tax added to the subtotal.
func GenericTax(name string, rate float64) TaxMode {
	return TaxMode{kind: taxGeneric, name: name, rate: rate}
}

// GST builds the GST tax mode. A non-positive rate falls back to the
// standard 18%.
func GST(rate float64) TaxMode {
	if rate <= 0 {
		rate = DefaultGSTRate
	}
	return TaxMode{kind: taxGST, rate: rate}
}

// IsGST reports whether the mode is GST.
func (m TaxMode) IsGST() bool { return m.kind == taxGST }

// Name returns the generic tax name, empty for other modes.
func (m TaxMode) Name() string { return m.name }

// Rate returns the configured percentage for the active mode.
func (m TaxMode) Rate() float64 {
	if m.kind == taxNone {
		return 0
	}
	return m.rate
}
