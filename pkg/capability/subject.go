package capability

import "github.com/google/uuid"

// Subject is the trusted identity a resolution is performed for.
type Subject struct {
	OrganizationID uuid.UUID
	UserID         *uuid.UUID
}
