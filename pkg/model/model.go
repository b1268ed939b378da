package model

import "time"

// Contact is the contact resource as seen by API clients. Name, Phone, and
// Email are pointers so that a partial-update payload only carries the
// fields the caller wants to change; Id and CreatedAt are assigned by the
// server and ignored in request bodies.
type Contact struct {
	Id        int64      `json:"id,omitempty"`
	Name      *string    `json:"name,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Email     *string    `json:"email,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
