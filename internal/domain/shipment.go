package domain

import (
	"context"
	"time"
)

type ShipmentStatus string

const (
	StatusPending   ShipmentStatus = "PENDING"
	StatusInTransit ShipmentStatus = "IN_TRANSIT"
	StatusDelivered ShipmentStatus = "DELIVERED"
	StatusCancelled ShipmentStatus = "CANCELLED"
	StatusDelayed   ShipmentStatus = "DELAYED"
)

// AllStatuses 按枚举声明顺序
var AllStatuses = []ShipmentStatus{StatusPending, StatusInTransit, StatusDelivered, StatusCancelled, StatusDelayed}

func (s ShipmentStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type ShipmentPriority string

const (
	PriorityLow    ShipmentPriority = "LOW"
	PriorityMedium ShipmentPriority = "MEDIUM"
	PriorityHigh   ShipmentPriority = "HIGH"
	PriorityUrgent ShipmentPriority = "URGENT"
)

var AllPriorities = []ShipmentPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p ShipmentPriority) Valid() bool {
	for _, v := range AllPriorities {
		if v == p {
			return true
		}
	}
	return false
}

// Shipment is a freight record. Status has no enforced transition graph and
// DeliveryDate is not checked against PickupDate.
type Shipment struct {
	ID                  string           `gorm:"primaryKey;size:36" json:"id"`
	ShipperName         string           `gorm:"size:255;not null" json:"shipperName"`
	CarrierName         string           `gorm:"size:255;not null" json:"carrierName"`
	PickupLocation      string           `gorm:"size:255;not null" json:"pickupLocation"`
	PickupDate          string           `gorm:"size:40;not null" json:"pickupDate"`
	DeliveryLocation    string           `gorm:"size:255;not null" json:"deliveryLocation"`
	DeliveryDate        string           `gorm:"size:40;not null" json:"deliveryDate"`
	Status              ShipmentStatus   `gorm:"size:16;not null;index" json:"status"`
	Priority            ShipmentPriority `gorm:"size:16;not null;index" json:"priority"`
	TrackingNumber      string           `gorm:"uniqueIndex;size:64;not null" json:"trackingNumber"`
	Rate                float64          `gorm:"not null" json:"rate"`
	Weight              float64          `gorm:"not null" json:"weight"`
	Dimensions          string           `gorm:"size:255;not null" json:"dimensions"`
	SpecialInstructions *string          `gorm:"type:text" json:"specialInstructions,omitempty"`
	Flagged             bool             `gorm:"not null;index" json:"flagged"`
	CreatedAt           time.Time        `gorm:"index" json:"createdAt"`
	UpdatedAt           time.Time        `gorm:"autoUpdateTime:false;not null" json:"updatedAt"`
	CreatedByID         *string          `gorm:"size:36;index" json:"createdById,omitempty"`
	UpdatedByID         *string          `gorm:"size:36;index" json:"updatedById,omitempty"`

	// 仅 FindJoined 填充；列表查询保持为空，由 loader 按需解析
	CreatedBy      *User           `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL" json:"createdBy,omitempty"`
	UpdatedBy      *User           `gorm:"foreignKey:UpdatedByID;constraint:OnDelete:SET NULL" json:"updatedBy,omitempty"`
	TrackingEvents []TrackingEvent `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE" json:"trackingEvents,omitempty"`
}

func (Shipment) TableName() string { return "shipments" }

// TrackingEvent 只追加，随 Shipment 级联删除
type TrackingEvent struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ShipmentID  string    `gorm:"size:36;not null;index" json:"shipmentId"`
	Timestamp   time.Time `gorm:"column:occurred_at;not null;index" json:"timestamp"`
	Location    string    `gorm:"size:255;not null" json:"location"`
	Status      string    `gorm:"size:64;not null" json:"status"`
	Description string    `gorm:"type:text;not null" json:"description"`
}

func (TrackingEvent) TableName() string { return "tracking_events" }

type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// SortableFields maps API field names to columns.
var SortableFields = map[string]string{
	"id":               "id",
	"shipperName":      "shipper_name",
	"carrierName":      "carrier_name",
	"pickupLocation":   "pickup_location",
	"pickupDate":       "pickup_date",
	"deliveryLocation": "delivery_location",
	"deliveryDate":     "delivery_date",
	"status":           "status",
	"priority":         "priority",
	"trackingNumber":   "tracking_number",
	"rate":             "rate",
	"weight":           "weight",
	"dimensions":       "dimensions",
	"flagged":          "flagged",
	"createdAt":        "created_at",
	"updatedAt":        "updated_at",
}

type ShipmentFilter struct {
	Status   *ShipmentStatus
	Priority *ShipmentPriority
	Search   string
	Flagged  *bool
}

type ShipmentSort struct {
	Field string // key of SortableFields
	Order SortOrder
}

type ShipmentQuery struct {
	Filter ShipmentFilter
	Sort   ShipmentSort
	Offset int
	Limit  int
}

type StatusCount struct {
	Status ShipmentStatus `json:"status"`
	Count  int64          `json:"count"`
}

type PriorityCount struct {
	Priority ShipmentPriority `json:"priority"`
	Count    int64            `json:"count"`
}

type ShipmentStats struct {
	TotalShipments int64           `json:"totalShipments"`
	ByStatus       []StatusCount   `json:"byStatus"`
	ByPriority     []PriorityCount `json:"byPriority"`
	TotalRevenue   float64         `json:"totalRevenue"`
}

type ShipmentRepository interface {
	List(ctx context.Context, q ShipmentQuery) ([]Shipment, int64, error)
	FindByID(ctx context.Context, id string) (*Shipment, error)
	// FindJoined 带上事件（按时间倒序）、创建人、更新人
	FindJoined(ctx context.Context, id string) (*Shipment, error)
	Create(ctx context.Context, s *Shipment) error
	Update(ctx context.Context, s *Shipment) error
	// Delete 连同事件一起删除；id 不存在时不报错
	Delete(ctx context.Context, id string) error
	AddEvent(ctx context.Context, e *TrackingEvent) error
	EventsByShipmentIDs(ctx context.Context, ids []string) ([]TrackingEvent, error)
	Stats(ctx context.Context) (*ShipmentStats, error)
}

// FillStats 把分组结果补齐为完整枚举（含 0），顺序与枚举声明一致
func FillStats(total int64, byStatus map[ShipmentStatus]int64, byPriority map[ShipmentPriority]int64, revenue float64) *ShipmentStats {
	st := &ShipmentStats{
		TotalShipments: total,
		ByStatus:       make([]StatusCount, 0, len(AllStatuses)),
		ByPriority:     make([]PriorityCount, 0, len(AllPriorities)),
		TotalRevenue:   revenue,
	}
	for _, s := range AllStatuses {
		st.ByStatus = append(st.ByStatus, StatusCount{Status: s, Count: byStatus[s]})
	}
	for _, p := range AllPriorities {
		st.ByPriority = append(st.ByPriority, PriorityCount{Priority: p, Count: byPriority[p]})
	}
	return st
}
