package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/andinosoft/contaflow/app/models"
	"github.com/andinosoft/contaflow/internal/pkg/database"
	"github.com/andinosoft/contaflow/internal/pkg/plans"
	"github.com/andinosoft/contaflow/internal/pkg/session"
)

// HandleOAuthBegin starts the provider flow.
func HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and logs the user in.
// A user we have never seen before gets a personal company and a trial
// subscription, so the OAuth path ends in the same state as registration.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "OAuth failed"}).Redirect("/login", fiber.StatusSeeOther)
	}

	db := database.GetDB()

	// Try to find existing provider account
	var pa models.ProviderAccount
	res := db.Where("provider = ? AND provider_user_id = ?", u.Provider, u.UserID).First(&pa)

	var appUser models.User
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		// Optional email match if provided
		if u.Email != "" {
			_ = db.Where("email = ?", u.Email).First(&appUser).Error
		}
		if appUser.ID == 0 {
			appUser, err = createOAuthUser(db, u.Provider, u.UserID, u.Email, firstNonEmptyString(u.Name, u.NickName, u.Email, "User"), u.AvatarURL)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("create user failed: %v", err))
			}
		}
		var exp *time.Time
		if !u.ExpiresAt.IsZero() {
			t := u.ExpiresAt
			exp = &t
		}
		pa = models.ProviderAccount{
			UserID:         appUser.ID,
			Provider:       u.Provider,
			ProviderUserID: u.UserID,
			AccessToken:    u.AccessToken,
			RefreshToken:   u.RefreshToken,
			ExpiresAt:      exp,
		}
		if err := db.Create(&pa).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("link provider failed: %v", err))
		}
	} else if res.Error == nil {
		// Update tokens
		pa.AccessToken = u.AccessToken
		pa.RefreshToken = u.RefreshToken
		if !u.ExpiresAt.IsZero() {
			t := u.ExpiresAt
			pa.ExpiresAt = &t
		} else {
			pa.ExpiresAt = nil
		}
		if err := db.Save(&pa).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("update tokens failed: %v", err))
		}
		// Load related user
		if err := db.First(&appUser, pa.UserID).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("linked user not found")
		}
	} else {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("db error: %v", res.Error))
	}

	if err := openUserSession(c, &appUser); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session init failed")
	}
	var s models.Subscription
	if err := db.Where("company_id = ?", appUser.CompanyID).First(&s).Error; err == nil && s.Plan != "" {
		_ = session.SetSessionValue(c, "company_plan", s.Plan)
	}

	// Update last login timestamp
	_ = db.Model(&appUser).UpdateColumn("last_login_at", time.Now()).Error

	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleOAuthLogout clears the provider session and the app session.
func HandleOAuthLogout(c *fiber.Ctx) error {
	if err := gothfiber.Logout(c); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Logout failed"}).Redirect("/", fiber.StatusSeeOther)
	}
	return HandleLogout(c)
}

// createOAuthUser creates an active user with a single-member company and a
// trial subscription. The password is a random placeholder not usable for
// credential login.
func createOAuthUser(db *gorm.DB, provider, providerUserID, email, name, avatarURL string) (models.User, error) {
	placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
	hash, _ := models.HashPassword(placeholder)
	if email == "" {
		// Ensure unique, non-empty email to satisfy unique index semantics in MySQL
		email = fmt.Sprintf("%s_%s@%s.oauth.local", provider, providerUserID, provider)
	}

	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		company := models.Company{
			Name:   name,
			NIT:    fmt.Sprintf("OAUTH-%s-%s", provider, providerUserID),
			Email:  email,
			Status: models.COMPANY_STATUS_ACTIVE,
		}
		if err := tx.Create(&company).Error; err != nil {
			return err
		}

		user = models.User{
			CompanyID: company.ID,
			Name:      name,
			Email:     email,
			Password:  hash,
			IsOwner:   true,
			AvatarURL: avatarURL,
			Status:    models.STATUS_ACTIVE,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		sub := models.NewTrialSubscription(company.ID, plans.TrialReportLimit)
		return tx.Create(sub).Error
	})
	return user, err
}

func firstNonEmptyString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
