package resources

import (
	"strings"

	"github.com/inventory-mgmt/invctl/internal/utils"
)

type CustomerType string

const (
	Residential CustomerType = "Residential"
	Commercial  CustomerType = "Commercial"
)

type LocationState struct {
	Name string `json:"name"`
}

type Location struct {
	ID           *int           `json:"id,omitempty"`
	AddressLine1 string         `json:"address_line_1"`
	AddressLine2 string         `json:"address_line_2"`
	City         string         `json:"city"`
	State        *LocationState `json:"state,omitempty"`
	PostalCode   string         `json:"postal_code"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
}

type PhoneNumber struct {
	ID          int    `json:"id"`
	PhoneNumber string `json:"phone_number"`
}

type Email struct {
	ID    *int   `json:"id,omitempty"`
	Email string `json:"email"`
}

type Contact struct {
	ID           *int          `json:"id,omitempty"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers"`
	Emails       []Email       `json:"emails"`
}

type Customer struct {
	ID               *int         `json:"id,omitempty"`
	CustomerType     CustomerType `json:"customer_type"`
	FirstName        string       `json:"first_name"`
	LastName         string       `json:"last_name"`
	CompanyName      *string      `json:"company_name,omitempty"`
	Email            string       `json:"email"`
	PhoneNumber      string       `json:"phone_number"`
	Contacts         []Contact    `json:"contacts"`
	BillingLocation  *Location    `json:"billing_location,omitempty"`
	ServiceLocations []Location   `json:"service_locations"`
	Parent           *Customer    `json:"parent"`
}

// Name is the company name for commercial customers, otherwise the person's name.
func (c Customer) Name() string {
	if c.CustomerType == Commercial {
		return utils.Value(c.CompanyName)
	}
	return strings.Join([]string{c.FirstName, c.LastName}, " ")
}

type User struct {
	ID        *int   `json:"id,omitempty"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type Brand struct {
	ID   *int   `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Category struct {
	Name   string    `json:"name"`
	Parent *Category `json:"parent,omitempty"`
}

type GenericProductStatus string

const (
	GenericProductActive   GenericProductStatus = "Active"
	GenericProductInactive GenericProductStatus = "Inactive"
)

type GenericProduct struct {
	ID       *int                 `json:"id,omitempty"`
	Category *Category            `json:"category"`
	Name     string               `json:"name"`
	Status   GenericProductStatus `json:"status"`
}

type ProductStatus string

const (
	ProductActive   ProductStatus = "Active"
	ProductInactive ProductStatus = "Inactive"
	ProductRecall   ProductStatus = "Recall"
)

type Product struct {
	ID             *int            `json:"id,omitempty"`
	Name           string          `json:"name,omitempty"`
	GenericProduct *GenericProduct `json:"generic_product,omitempty"`
	Brand          *Brand          `json:"brand,omitempty"`
	Status         ProductStatus   `json:"status"`
}

type StockLocationStatus string

const (
	StockActive   StockLocationStatus = "Active"
	StockInactive StockLocationStatus = "Inactive"
	StockFull     StockLocationStatus = "Full"
)

type StockLocation struct {
	ID       *int                `json:"id,omitempty"`
	Status   StockLocationStatus `json:"status"`
	Location *Location           `json:"location,omitempty"`
}

type EquipmentCondition struct {
	ID                 *int   `json:"id,omitempty"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	ActionCollect      bool   `json:"action_collect"`
	ActionDecommission bool   `json:"action_decommission"`
	ActionDeploy       bool   `json:"action_deploy"`
	ActionStore        bool   `json:"action_store"`
	ActionTransfer     bool   `json:"action_transfer"`
	ActionWithdraw     bool   `json:"action_withdraw"`
}

type EquipmentStatus string

const (
	EquipmentStored         EquipmentStatus = "Stored"
	EquipmentDeployed       EquipmentStatus = "Deployed"
	EquipmentPickedUp       EquipmentStatus = "Picked Up"
	EquipmentMissing        EquipmentStatus = "Missing"
	EquipmentDecommissioned EquipmentStatus = "Decommissioned"
)

type Equipment struct {
	ID        *int                `json:"id,omitempty"`
	Name      string              `json:"name"`
	Product   *Product            `json:"product,omitempty"`
	Status    EquipmentStatus     `json:"status"`
	Warehouse *StockLocation      `json:"warehouse,omitempty"`
	Condition *EquipmentCondition `json:"condition,omitempty"`
	User      *User               `json:"user,omitempty"`
	Location  *Location           `json:"location,omitempty"`
}

type OrderActivity string

const (
	ActivityDeploy  OrderActivity = "Deploy"
	ActivityCollect OrderActivity = "Collect"
	ActivityInspect OrderActivity = "Inspect"
)

type OrderStatus string

const (
	OrderNew        OrderStatus = "New"
	OrderAssigned   OrderStatus = "Assigned"
	OrderInProgress OrderStatus = "In Progress"
	OrderCompleted  OrderStatus = "Completed"
	OrderCanceled   OrderStatus = "Canceled"
)

type Order struct {
	ID              *int             `json:"id,omitempty"`
	Activity        OrderActivity    `json:"activity"`
	Customer        *Customer        `json:"customer,omitempty"`
	Status          OrderStatus      `json:"status"`
	Location        *Location        `json:"location,omitempty"`
	Equipments      []Equipment      `json:"equipments"`
	TeamLead        *User            `json:"team_lead,omitempty"`
	Team            []User           `json:"team"`
	GenericProducts []GenericProduct `json:"generic_products"`
	Date            string           `json:"date"`
}

// NewOrder returns an order with the defaults a fresh order form starts from.
func NewOrder(activity OrderActivity) Order {
	return Order{Activity: activity, Status: OrderNew}
}
