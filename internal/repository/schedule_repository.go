package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// ScheduleFilters narrows schedule searches
type ScheduleFilters struct {
	CarrierCode string
	POLCode     string
	PODCode     string
	From        *time.Time
	To          *time.Time
	Status      *domain.ScheduleStatus
}

// ScheduleRepository handles ocean and air schedules and the capacity rows under them
type ScheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *ScheduleRepository) WithTx(tx *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: tx}
}

// CreateOceanSchedule inserts a voyage leg
func (r *ScheduleRepository) CreateOceanSchedule(ctx context.Context, s *domain.OceanSchedule) error {
	return r.db.WithContext(ctx).Omit("Spaces").Create(s).Error
}

// GetOceanSchedule retrieves a voyage with its space rows
func (r *ScheduleRepository) GetOceanSchedule(ctx context.Context, id uuid.UUID) (*domain.OceanSchedule, error) {
	var s domain.OceanSchedule
	err := r.db.WithContext(ctx).
		Preload("Spaces", func(db *gorm.DB) *gorm.DB { return db.Order("container_type ASC") }).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LockOceanSchedule retrieves a voyage header under a row lock
func (r *ScheduleRepository) LockOceanSchedule(ctx context.Context, id uuid.UUID) (*domain.OceanSchedule, error) {
	var s domain.OceanSchedule
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateOceanScheduleStatus sets the voyage status
func (r *ScheduleRepository) UpdateOceanScheduleStatus(ctx context.Context, id uuid.UUID, status domain.ScheduleStatus) error {
	return r.db.WithContext(ctx).Model(&domain.OceanSchedule{}).Where("id = ?", id).Update("status", status).Error
}

// SearchOceanSchedules lists voyages matching the filters ordered by ETD
func (r *ScheduleRepository) SearchOceanSchedules(ctx context.Context, f ScheduleFilters) ([]domain.OceanSchedule, error) {
	var schedules []domain.OceanSchedule
	query := r.db.WithContext(ctx).Preload("Spaces")
	if f.CarrierCode != "" {
		query = query.Where("carrier_code = ?", f.CarrierCode)
	}
	if f.POLCode != "" {
		query = query.Where("pol_code = ?", f.POLCode)
	}
	if f.PODCode != "" {
		query = query.Where("pod_code = ?", f.PODCode)
	}
	if f.From != nil {
		query = query.Where("etd >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("etd <= ?", *f.To)
	}
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	err := query.Order("etd ASC").Find(&schedules).Error
	return schedules, err
}

// CreateSpace inserts a container-type space block
func (r *ScheduleRepository) CreateSpace(ctx context.Context, s *domain.OceanSpace) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// GetSpace retrieves a space block by id
func (r *ScheduleRepository) GetSpace(ctx context.Context, id uuid.UUID) (*domain.OceanSpace, error) {
	var s domain.OceanSpace
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// LockSpace retrieves the space block for a schedule and container type under a row lock
func (r *ScheduleRepository) LockSpace(ctx context.Context, scheduleID uuid.UUID, containerType string) (*domain.OceanSpace, error) {
	var s domain.OceanSpace
	err := forUpdate(r.db.WithContext(ctx)).
		Where("schedule_id = ? AND container_type = ?", scheduleID, containerType).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LockSpaceByID retrieves a space block under a row lock
func (r *ScheduleRepository) LockSpaceByID(ctx context.Context, id uuid.UUID) (*domain.OceanSpace, error) {
	var s domain.OceanSpace
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSpaceCounts persists booked and available quantities of a locked space block
func (r *ScheduleRepository) SaveSpaceCounts(ctx context.Context, s *domain.OceanSpace) error {
	return r.db.WithContext(ctx).Model(s).Updates(map[string]interface{}{
		"booked_qty":    s.BookedQty,
		"available_qty": s.AvailableQty,
	}).Error
}

// ListSpaces returns the space blocks of a schedule
func (r *ScheduleRepository) ListSpaces(ctx context.Context, scheduleID uuid.UUID) ([]domain.OceanSpace, error) {
	var spaces []domain.OceanSpace
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("container_type ASC").
		Find(&spaces).Error
	return spaces, err
}

// UpsertAllocation creates or resizes the allocation of a space block to a customer
func (r *ScheduleRepository) UpsertAllocation(ctx context.Context, a *domain.SpaceAllocation) (UpsertResult, error) {
	key := map[string]interface{}{"space_id": a.SpaceID, "customer_code": a.CustomerCode}
	return upsertByKey(ctx, r.db, a, key, []string{"allocated_qty"},
		func(x, y *domain.SpaceAllocation) bool { return x.AllocatedQty == y.AllocatedQty })
}

// LockAllocation retrieves a customer's allocation on a space block under a row lock.
// Returns gorm.ErrRecordNotFound when the customer has no allocation.
func (r *ScheduleRepository) LockAllocation(ctx context.Context, spaceID uuid.UUID, customerCode string) (*domain.SpaceAllocation, error) {
	var a domain.SpaceAllocation
	err := forUpdate(r.db.WithContext(ctx)).
		Where("space_id = ? AND customer_code = ?", spaceID, customerCode).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAllocationUsage persists the used quantity of an allocation
func (r *ScheduleRepository) SaveAllocationUsage(ctx context.Context, a *domain.SpaceAllocation) error {
	return r.db.WithContext(ctx).Model(a).Update("used_qty", a.UsedQty).Error
}

// ListAllocations returns the allocations on a space block
func (r *ScheduleRepository) ListAllocations(ctx context.Context, spaceID uuid.UUID) ([]domain.SpaceAllocation, error) {
	var allocations []domain.SpaceAllocation
	err := r.db.WithContext(ctx).
		Where("space_id = ?", spaceID).
		Order("customer_code ASC").
		Find(&allocations).Error
	return allocations, err
}

// CreateAirSchedule inserts a flight leg
func (r *ScheduleRepository) CreateAirSchedule(ctx context.Context, s *domain.AirSchedule) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// GetAirSchedule retrieves a flight leg
func (r *ScheduleRepository) GetAirSchedule(ctx context.Context, id uuid.UUID) (*domain.AirSchedule, error) {
	var s domain.AirSchedule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// LockAirSchedule retrieves a flight leg under a row lock
func (r *ScheduleRepository) LockAirSchedule(ctx context.Context, id uuid.UUID) (*domain.AirSchedule, error) {
	var s domain.AirSchedule
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveAirWeights persists booked and available weight of a locked flight
func (r *ScheduleRepository) SaveAirWeights(ctx context.Context, s *domain.AirSchedule) error {
	return r.db.WithContext(ctx).Model(s).Updates(map[string]interface{}{
		"booked_weight_kg":    s.BookedWeightKg,
		"available_weight_kg": s.AvailableWeightKg,
	}).Error
}

// UpdateAirScheduleStatus sets the flight status
func (r *ScheduleRepository) UpdateAirScheduleStatus(ctx context.Context, id uuid.UUID, status domain.ScheduleStatus) error {
	return r.db.WithContext(ctx).Model(&domain.AirSchedule{}).Where("id = ?", id).Update("status", status).Error
}

// SearchAirSchedules lists flights between two airports in a date window
func (r *ScheduleRepository) SearchAirSchedules(ctx context.Context, origin, dest string, from, to time.Time) ([]domain.AirSchedule, error) {
	var schedules []domain.AirSchedule
	query := r.db.WithContext(ctx).Where("flight_date >= ? AND flight_date <= ?", from, to)
	if origin != "" {
		query = query.Where("origin_code = ?", origin)
	}
	if dest != "" {
		query = query.Where("dest_code = ?", dest)
	}
	err := query.Order("etd ASC").Find(&schedules).Error
	return schedules, err
}
