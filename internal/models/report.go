package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report statuses. The permitted transitions between them live in package workflow.
const (
	StatusSubmitted   = "Submitted"
	StatusUnderReview = "Under Review"
	StatusActionTaken = "Action Taken"
	StatusResolved    = "Resolved"
)

// Communication log author roles.
const (
	AuthorUser   = "user"
	AuthorAdmin  = "admin"
	AuthorSystem = "system"
)

// AnonymousDisplayName is shown wherever the submitter of an anonymous report would appear.
const AnonymousDisplayName = "Anonymous User"

type Report struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	CaseID        string               `bson:"caseId" json:"caseId"`
	School        string               `bson:"school" json:"school"`
	Category      string               `bson:"category" json:"category"`
	Description   string               `bson:"description" json:"description"`
	Incident      IncidentDetails      `bson:"incident" json:"incident"`
	Priority      string               `bson:"priority" json:"priority"`
	Status        string               `bson:"status" json:"status"`
	ImageURLs     []string             `bson:"imageUrls" json:"imageUrls"`
	ImageURL      string               `bson:"imageUrl,omitempty" json:"-"` // single-image documents from before imageUrls
	VideoURL      string               `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	IsAnonymous   bool                 `bson:"isAnonymous" json:"isAnonymous"`
	AuthorID      *primitive.ObjectID  `bson:"authorId" json:"authorId"`
	SubmittedByID *primitive.ObjectID  `bson:"submittedById,omitempty" json:"-"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
	Log           []CommunicationEntry `bson:"communicationLog" json:"communicationLog"`
	Escalations   []Escalation         `bson:"escalations,omitempty" json:"escalations,omitempty"`
}

type IncidentDetails struct {
	Date            string `bson:"date,omitempty" json:"date,omitempty"` // YYYY-MM-DD
	Time            string `bson:"time,omitempty" json:"time,omitempty"` // HH:MM
	Location        string `bson:"location,omitempty" json:"location,omitempty"`
	PartiesInvolved string `bson:"partiesInvolved,omitempty" json:"partiesInvolved,omitempty"`
	Witnesses       string `bson:"witnesses,omitempty" json:"witnesses,omitempty"`
	DesiredOutcome  string `bson:"desiredOutcome,omitempty" json:"desiredOutcome,omitempty"`
}

type CommunicationEntry struct {
	Message    string              `bson:"message" json:"message"`
	AuthorName string              `bson:"authorName" json:"authorName"`
	AuthorRole string              `bson:"authorRole" json:"authorRole"`
	AuthorID   *primitive.ObjectID `bson:"authorId,omitempty" json:"authorId,omitempty"`
	Timestamp  time.Time           `bson:"timestamp" json:"timestamp"`
}

type Escalation struct {
	Agency      string             `bson:"agency" json:"agency"`
	Notes       string             `bson:"notes" json:"notes"`
	EscalatedBy primitive.ObjectID `bson:"escalatedBy" json:"escalatedBy"`
	EscalatedAt time.Time          `bson:"escalatedAt" json:"escalatedAt"`
}

// Images returns the evidence image URLs, folding in the legacy single-image field.
func (r *Report) Images() []string {
	if len(r.ImageURLs) > 0 {
		return r.ImageURLs
	}
	if r.ImageURL != "" {
		return []string{r.ImageURL}
	}
	return []string{}
}

// Clone returns a deep copy of r: no slice or pointer is shared with it.
func (r *Report) Clone() *Report {
	c := *r
	c.ImageURLs = append([]string(nil), r.ImageURLs...)
	c.Log = append([]CommunicationEntry(nil), r.Log...)
	for i := range c.Log {
		c.Log[i] = c.Log[i].Clone()
	}
	c.Escalations = append([]Escalation(nil), r.Escalations...)
	c.AuthorID = cloneID(r.AuthorID)
	c.SubmittedByID = cloneID(r.SubmittedByID)
	return &c
}

// Clone returns a copy of e that does not share its AuthorID.
func (e CommunicationEntry) Clone() CommunicationEntry {
	e.AuthorID = cloneID(e.AuthorID)
	return e
}

func cloneID(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
