package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestReportClone(t *testing.T) {
	t.Parallel()

	author := primitive.NewObjectID()
	admin := primitive.NewObjectID()
	r := &Report{
		Status:        StatusSubmitted,
		ImageURLs:     []string{"https://img.test/a.png"},
		AuthorID:      &author,
		SubmittedByID: &author,
		Log: []CommunicationEntry{
			{Message: "Any update?", AuthorRole: AuthorUser, AuthorID: &author, Timestamp: time.Now()},
			{Message: "We are looking into it.", AuthorRole: AuthorAdmin, AuthorID: &admin, Timestamp: time.Now()},
			{Message: "Status changed.", AuthorRole: AuthorSystem},
		},
		Escalations: []Escalation{{Agency: "PNP", EscalatedBy: admin}},
	}

	c := r.Clone()
	require.Equal(t, r, c)
	wantAuthor, wantAdmin := author, admin

	*c.Log[0].AuthorID = primitive.NewObjectID()
	*c.Log[1].AuthorID = primitive.NewObjectID()
	*c.AuthorID = primitive.NewObjectID()
	*c.SubmittedByID = primitive.NewObjectID()
	c.Log[2].Message = "changed"
	c.ImageURLs[0] = "changed"
	c.Escalations[0].Agency = "DSWD"

	assert.Equal(t, wantAuthor, *r.Log[0].AuthorID)
	assert.Equal(t, wantAdmin, *r.Log[1].AuthorID)
	assert.Nil(t, c.Log[2].AuthorID)
	assert.Equal(t, wantAuthor, *r.AuthorID)
	assert.Equal(t, wantAuthor, *r.SubmittedByID)
	assert.Equal(t, "Status changed.", r.Log[2].Message)
	assert.Equal(t, "https://img.test/a.png", r.ImageURLs[0])
	assert.Equal(t, "PNP", r.Escalations[0].Agency)
}

func TestCommunicationEntryClone(t *testing.T) {
	t.Parallel()

	id := primitive.NewObjectID()
	e := CommunicationEntry{Message: "Any update?", AuthorID: &id}
	c := e.Clone()
	require.Equal(t, e, c)

	*c.AuthorID = primitive.NewObjectID()
	assert.NotEqual(t, *e.AuthorID, *c.AuthorID)
	assert.Nil(t, CommunicationEntry{}.Clone().AuthorID)
}
