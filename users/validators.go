package users

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"csv-exchange/common"
)

// UserValidator validates user records for bulk import
type UserValidator struct {
	existingIDs    map[string]string // id -> email
	existingEmails map[string]string // email -> id
	batchEmails    map[string]int    // email -> first row in this import
}

// NewUserValidator creates a validator with pre-loaded existing data
func NewUserValidator(db *gorm.DB) *UserValidator {
	v := &UserValidator{
		existingIDs:    make(map[string]string),
		existingEmails: make(map[string]string),
		batchEmails:    make(map[string]int),
	}

	var users []UserModel
	db.Select("id", "email").Find(&users)
	for _, u := range users {
		v.existingIDs[u.ID] = strings.ToLower(u.Email)
		v.existingEmails[strings.ToLower(u.Email)] = u.ID
	}
	return v
}

// Validate checks a decoded user. Email is the natural key: a row may update
// an existing user with the same email, but two rows of one import may not
// share an email.
func (v *UserValidator) Validate(u *UserModel, rowNum int) *common.RecordValidationResult {
	result := common.NewResult(rowNum, u.ID)

	if id := strings.TrimSpace(u.ID); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			result.AddError("id", "Invalid UUID format")
		}
	}

	email := strings.ToLower(strings.TrimSpace(u.Email))
	switch {
	case email == "":
		result.AddError("email", "Email is required (natural key for upsert)")
	case !common.ValidateEmail(email):
		result.AddError("email", "Invalid email format")
	default:
		if first, ok := v.batchEmails[email]; ok {
			result.AddError("email", fmt.Sprintf("Duplicate email in import (first seen at row %d)", first))
		} else if owner, ok := v.existingEmails[email]; ok && u.ID != "" && owner != u.ID {
			result.AddError("email", "Email belongs to another user")
		} else if stored, ok := v.existingIDs[u.ID]; ok && stored != email {
			result.AddError("id", "ID already exists with a different email")
		}
	}

	if err := common.ValidateRequired("name", u.Name); err != nil {
		result.AddError(err.Field, err.Message)
	}

	if err := common.ValidateEnum("role", strings.ToLower(strings.TrimSpace(u.Role)), Roles); err != nil {
		result.AddError(err.Field, err.Message)
	}

	if result.Valid {
		v.batchEmails[email] = rowNum
	}
	return result
}

// Normalize fills defaults: generated id, lower-case email and role, and
// timestamps.
func Normalize(u *UserModel) {
	now := time.Now().UTC()

	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	u.Role = strings.ToLower(strings.TrimSpace(u.Role))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

// Upsert writes users, updating existing rows by email.
func Upsert(db *gorm.DB, users []UserModel) error {
	if len(users) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role", "active", "updated_at"}),
	}).Create(&users).Error
}

// Query returns the users query for export filters: role and active.
func Query(db *gorm.DB, filters map[string]string) *gorm.DB {
	q := db.Model(&UserModel{}).Order("created_at, id")
	if role, ok := filters["role"]; ok {
		q = q.Where("role = ?", role)
	}
	if active, ok := filters["active"]; ok {
		q = q.Where("active = ?", active == "true")
	}
	return q
}
