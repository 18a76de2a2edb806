package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

type School struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
}

type Category struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Priority string             `bson:"priority" json:"priority"`
}

// Agency is an external authority a report can be escalated to.
type Agency struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Email string `json:"-"`
}
