package domain

// Source identifies the detection channel that observed a launch.
type Source string

const (
	SourceLedger Source = "LEDGER"
	SourceFeed   Source = "FEED"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceLedger || s == SourceFeed
}
