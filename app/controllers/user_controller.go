package controllers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/andinosoft/contaflow/app/models"
	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/database"
	"github.com/andinosoft/contaflow/internal/pkg/usercontext"
)

type updateUserRequest struct {
	Name               string `json:"name"`
	Password           string `json:"password"`
	NotifyReceipts     *bool  `json:"notify_receipts"`
	NotifySubscription *bool  `json:"notify_subscription"`
}

// HandleGetCurrentUser returns the authenticated user's account together
// with the company it belongs to.
func HandleGetCurrentUser(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "user not found"})
		}
		log.Printf("user lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "lookup failed"})
	}

	company, err := repos.Company.GetByID(user.CompanyID)
	if err != nil {
		log.Printf("company lookup failed for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "lookup failed"})
	}

	return c.JSON(fiber.Map{
		"user":    user,
		"company": company,
		"plan":    userCtx.Plan,
	})
}

// HandleUpdateCurrentUser updates name, password and notification settings.
func HandleUpdateCurrentUser(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "user not found"})
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if req.Password != "" {
		if len(req.Password) < 6 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "password must be at least 6 characters"})
		}
		if err := user.SetPassword(req.Password); err != nil {
			log.Printf("password hash failed for user %d: %v", user.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "update failed"})
		}
	}
	if err := repos.User.Update(user); err != nil {
		log.Printf("user update failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "update failed"})
	}

	if req.NotifyReceipts != nil || req.NotifySubscription != nil {
		db := database.GetDB()
		settings, err := models.GetOrCreateUserSettings(db, user.ID)
		if err != nil {
			log.Printf("settings load failed for user %d: %v", user.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "update failed"})
		}
		if req.NotifyReceipts != nil {
			settings.NotifyReceipts = *req.NotifyReceipts
		}
		if req.NotifySubscription != nil {
			settings.NotifySubscription = *req.NotifySubscription
		}
		if err := db.Save(settings).Error; err != nil {
			log.Printf("settings save failed for user %d: %v", user.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "update failed"})
		}
	}

	return c.JSON(fiber.Map{"user": user})
}

// HandleGenerateAPIKey creates a fresh API key for the user. The plaintext
// key is returned exactly once; only its hash is stored. Generating a new
// key invalidates the previous one.
func HandleGenerateAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	db := database.GetDB()

	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		log.Printf("settings load failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "key generation failed"})
	}

	key, err := settings.GenerateAPIKey()
	if err != nil {
		log.Printf("api key generation failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "key generation failed"})
	}
	if err := db.Save(settings).Error; err != nil {
		log.Printf("api key save failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "key generation failed"})
	}

	return c.JSON(fiber.Map{
		"api_key": key,
		"message": "store this key now, it will not be shown again",
	})
}
