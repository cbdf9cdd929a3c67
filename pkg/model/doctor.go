package model

import "time"

type Doctor struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID    string    `json:"user_id" bson:"user_id" validate:"required,min=1,max=64"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Specialty string    `json:"specialty" bson:"specialty" validate:"required,min=2,max=100"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type DoctorUpdate struct {
	Name      string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Specialty string `json:"specialty,omitempty" validate:"omitempty,min=2,max=100"`
}
