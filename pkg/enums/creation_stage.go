package enums

// CreationStage is the progress marker streamed to the customer's channel
// while an order creation workflow runs. Markers are wire-compatible string
// digits consumed by the frontend.
type CreationStage string

const (
	CreationStageStarted        CreationStage = "0"
	CreationStageLinksPersisted CreationStage = "1"
	CreationStageCompleted      CreationStage = "2"
	CreationStageFailed         CreationStage = "-1"
)

// String implements fmt.Stringer.
func (c CreationStage) String() string {
	return string(c)
}
