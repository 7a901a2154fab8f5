package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// 前端 datetime-local 与日期选择器的格式
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", dateLayout}

// ParseTimestamp accepts RFC3339, datetime-local and plain dates. Results are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

type CreateShipmentInput struct {
	ShipperName         string            `validate:"required,max=255"`
	CarrierName         string            `validate:"required,max=255"`
	PickupLocation      string            `validate:"required,max=255"`
	PickupDate          string            `validate:"required,shipdate"`
	DeliveryLocation    string            `validate:"required,max=255"`
	DeliveryDate        string            `validate:"required,shipdate"`
	Status              *ShipmentStatus   `validate:"omitempty,shipstatus"`
	Priority            *ShipmentPriority `validate:"omitempty,shippriority"`
	TrackingNumber      string            `validate:"required,max=64"`
	Rate                float64           `validate:"gte=0"`
	Weight              float64           `validate:"gte=0"`
	Dimensions          string            `validate:"required,max=255"`
	SpecialInstructions *string           `validate:"omitempty,max=4000"`
	Flagged             *bool
}

// UpdateShipmentInput: nil 表示不修改
type UpdateShipmentInput struct {
	ShipperName         *string           `validate:"omitempty,min=1,max=255"`
	CarrierName         *string           `validate:"omitempty,min=1,max=255"`
	PickupLocation      *string           `validate:"omitempty,min=1,max=255"`
	PickupDate          *string           `validate:"omitempty,shipdate"`
	DeliveryLocation    *string           `validate:"omitempty,min=1,max=255"`
	DeliveryDate        *string           `validate:"omitempty,shipdate"`
	Status              *ShipmentStatus   `validate:"omitempty,shipstatus"`
	Priority            *ShipmentPriority `validate:"omitempty,shippriority"`
	TrackingNumber      *string           `validate:"omitempty,min=1,max=64"`
	Rate                *float64          `validate:"omitempty,gte=0"`
	Weight              *float64          `validate:"omitempty,gte=0"`
	Dimensions          *string           `validate:"omitempty,min=1,max=255"`
	SpecialInstructions *string           `validate:"omitempty,max=4000"`
	Flagged             *bool
}

// Apply 把非空字段写入 s，不触碰审计字段
func (in UpdateShipmentInput) Apply(s *Shipment) {
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setStr(&s.ShipperName, in.ShipperName)
	setStr(&s.CarrierName, in.CarrierName)
	setStr(&s.PickupLocation, in.PickupLocation)
	setStr(&s.PickupDate, in.PickupDate)
	setStr(&s.DeliveryLocation, in.DeliveryLocation)
	setStr(&s.DeliveryDate, in.DeliveryDate)
	setStr(&s.TrackingNumber, in.TrackingNumber)
	setStr(&s.Dimensions, in.Dimensions)
	if in.Status != nil {
		s.Status = *in.Status
	}
	if in.Priority != nil {
		s.Priority = *in.Priority
	}
	if in.Rate != nil {
		s.Rate = *in.Rate
	}
	if in.Weight != nil {
		s.Weight = *in.Weight
	}
	if in.SpecialInstructions != nil {
		v := *in.SpecialInstructions
		s.SpecialInstructions = &v
	}
	if in.Flagged != nil {
		s.Flagged = *in.Flagged
	}
}

type AddTrackingEventInput struct {
	Timestamp   string `validate:"required,eventtime"`
	Location    string `validate:"required,max=255"`
	Status      string `validate:"required,max=64"`
	Description string `validate:"required,max=4000"`
}

type LoginInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type RegisterInput struct {
	Email    string `validate:"required,email,max=191"`
	Password string `validate:"required,min=6,max=72"`
	Name     string `validate:"required,max=64"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("shipdate", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if _, err := time.Parse(dateLayout, s); err == nil {
				return true
			}
			_, err := time.Parse(time.RFC3339Nano, s)
			return err == nil
		})
		_ = v.RegisterValidation("eventtime", func(fl validator.FieldLevel) bool {
			_, err := ParseTimestamp(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("shipstatus", func(fl validator.FieldLevel) bool {
			return ShipmentStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("shippriority", func(fl validator.FieldLevel) bool {
			return ShipmentPriority(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Validate 校验输入结构体，失败时返回 BAD_USER_INPUT
func Validate(in any) error {
	err := validatorInstance().Struct(in)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		parts := make([]string, 0, len(ves))
		for _, fe := range ves {
			parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		return BadInput("invalid input: "+strings.Join(parts, "; "), err)
	}
	return BadInput("invalid input", err)
}
