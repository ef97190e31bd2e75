// Package relation defines the lifecycle state shared by room invites
// and friend requests.
package relation

import "fmt"

// Status is the tri-state lifecycle of an invite or friend request.
// Only Pending rows ever persist; Accepted and Declined are transitions
// that apply their side effect and delete the row.
type Status int

const (
	Pending Status = iota
	Accepted
	Declined
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Accepted:
		return "accepted"
	case Declined:
		return "declined"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Parse converts the wire form of a status into a Status.
func Parse(s string) (Status, error) {
	switch s {
	case "pending":
		return Pending, nil
	case "accepted":
		return Accepted, nil
	case "declined":
		return Declined, nil
	}
	return Pending, fmt.Errorf("unknown status %q", s)
}
