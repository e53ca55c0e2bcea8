package models

import (
	"time"
)

// CustomerType distinguishes individual from corporate customers
type CustomerType int

const (
	CustomerTypeIndividual CustomerType = 1
	CustomerTypeCorporate  CustomerType = 2
)

// Customer represents an account holder
type Customer struct {
	CustomerID                   string       `json:"customer_id" db:"customer_id"`
	CustomerName                 string       `json:"customer_name" db:"customer_name"`
	CustomerType                 CustomerType `json:"customer_type" db:"customer_type"`
	RealNameIdentificationNumber string       `json:"real_name_identification_number" db:"real_name_identification_number"`
	RegistrationDate             time.Time    `json:"registration_date" db:"registration_date"`
	LastModifiedDate             time.Time    `json:"last_modified_date" db:"last_modified_date"`
}

// CustomerRequest is the payload accepted on customer create and update
type CustomerRequest struct {
	CustomerName                 string       `json:"customer_name" validate:"required,max=100"`
	CustomerType                 CustomerType `json:"customer_type" validate:"required,oneof=1 2"`
	RealNameIdentificationNumber string       `json:"real_name_identification_number" validate:"required,len=13"`
}
