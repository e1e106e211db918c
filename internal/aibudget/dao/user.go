package dao

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aisa-it/aibudget/internal/aibudget/dto"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"
)

const passwordHashIterations = 260000

type User struct {
	ID        string `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Email     string `json:"email" gorm:"uniqueIndex"`
	Password  string `json:"-"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	Role   types.Role `json:"role"`
	Status string     `json:"status" gorm:"default:active"`

	LastActivityAt *time.Time `json:"last_activity_at"`
}

func (User) TableName() string { return "users" }

// SetPassword хеширует пароль в формате pbkdf2_sha256$iter$salt$hash.
func (u *User) SetPassword(password string) {
	saltRaw := make([]byte, 12)
	rand.Read(saltRaw)
	salt := hex.EncodeToString(saltRaw)

	hash := base64.StdEncoding.EncodeToString(
		pbkdf2.Key([]byte(password), []byte(salt), passwordHashIterations, 32, sha256.New))
	u.Password = fmt.Sprintf("pbkdf2_sha256$%d$%s$%s", passwordHashIterations, salt, hash)
}

// CheckPassword проверяет пароль против сохраненного хеша.
func (u *User) CheckPassword(password string) bool {
	ss := strings.Split(u.Password, "$")
	if len(ss) != 4 {
		return false
	}
	iterations, err := strconv.Atoi(ss[1])
	if err != nil {
		return false
	}
	return base64.StdEncoding.EncodeToString(
		pbkdf2.Key([]byte(password), []byte(ss[2]), iterations, 32, sha256.New)) == ss[3]
}

// UpdateUserLastActivityTime обновляет отметку последней активности пользователя.
func UpdateUserLastActivityTime(db *gorm.DB, user *User) error {
	now := time.Now()
	user.LastActivityAt = &now
	return db.Model(user).UpdateColumn("last_activity_at", now).Error
}

func (u *User) ToLightDTO() *dto.UserLight {
	if u == nil {
		return nil
	}
	return &dto.UserLight{
		Id:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

func (u *User) ToDTO() *dto.User {
	if u == nil {
		return nil
	}
	updatedAt := u.UpdatedAt
	return &dto.User{
		UserLight:      *u.ToLightDTO(),
		Status:         u.Status,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      &updatedAt,
		LastActivityAt: u.LastActivityAt,
	}
}
