package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/andinosoft/contaflow/app/models"
	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/database"
	"github.com/andinosoft/contaflow/internal/pkg/env"
	"github.com/andinosoft/contaflow/internal/pkg/hcaptcha"
	"github.com/andinosoft/contaflow/internal/pkg/mail"
	"github.com/andinosoft/contaflow/internal/pkg/plans"
	"github.com/andinosoft/contaflow/internal/pkg/session"
	"github.com/andinosoft/contaflow/internal/pkg/usercontext"
)

type registerRequest struct {
	CompanyName  string `json:"company_name"`
	NIT          string `json:"nit"`
	CompanyEmail string `json:"company_email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	City         string `json:"city"`
	OwnerName    string `json:"owner_name"`
	OwnerEmail   string `json:"owner_email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a company with its owner user and a trial
// subscription. The owner account stays inactive until the activation link
// from the welcome mail is used.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	req.NIT = strings.TrimSpace(req.NIT)
	req.OwnerEmail = strings.ToLower(strings.TrimSpace(req.OwnerEmail))
	if req.CompanyName == "" || req.NIT == "" || req.OwnerName == "" || req.OwnerEmail == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "company_name, nit, owner_name, owner_email and password are required"})
	}

	if env.GetEnv("HCAPTCHA_SECRET", "") != "" {
		if ok, err := hcaptcha.Verify(req.CaptchaToken); !ok {
			log.Printf("captcha verification failed: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "captcha verification failed"})
		}
	}

	repos := repository.GetGlobalRepositories()

	if _, err := repos.Company.GetByNIT(req.NIT); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "a company with this NIT already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("company lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "registration failed"})
	}
	if _, err := repos.User.GetByEmail(req.OwnerEmail); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "a user with this email already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("user lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "registration failed"})
	}

	company := &models.Company{
		Name:    strings.TrimSpace(req.CompanyName),
		NIT:     req.NIT,
		Email:   strings.TrimSpace(req.CompanyEmail),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		City:    strings.TrimSpace(req.City),
		Status:  models.COMPANY_STATUS_ACTIVE,
	}
	if err := company.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	var owner *models.User
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			return err
		}

		u, err := models.CreateUser(company.ID, req.OwnerName, req.OwnerEmail, req.Password)
		if err != nil {
			return err
		}
		u.IsOwner = true
		if err := u.GenerateActivationToken(); err != nil {
			return err
		}
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		owner = u

		sub := models.NewTrialSubscription(company.ID, plans.TrialReportLimit)
		return tx.Create(sub).Error
	})
	if err != nil {
		log.Printf("registration transaction failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "registration failed"})
	}

	go func(email, name, token string) {
		if err := mail.SendActivationMail(email, name, token); err != nil {
			log.Printf("activation mail to %s failed: %v", email, err)
		}
	}(owner.Email, owner.Name, owner.ActivationToken)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"company": fiber.Map{
			"id":   company.ID,
			"name": company.Name,
			"nit":  company.NIT,
		},
		"user": fiber.Map{
			"id":     owner.ID,
			"name":   owner.Name,
			"email":  owner.Email,
			"status": owner.Status,
		},
		"message": "registration successful, check your email to activate the account",
	})
}

// HandleActivate activates a user account via the mailed token.
func HandleActivate(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "token missing"})
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByActivationToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "invalid activation token"})
		}
		log.Printf("activation lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "activation failed"})
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := repos.User.Update(user); err != nil {
		log.Printf("activation update failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "activation failed"})
	}

	return c.JSON(fiber.Map{"message": "account activated, you can now log in"})
}

// HandleLogin authenticates a user with email and password and opens a
// server-side session.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "email and password are required"})
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "invalid credentials"})
		}
		log.Printf("login lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "login failed"})
	}

	if !user.CheckPassword(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "invalid credentials"})
	}
	if !user.IsActive() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "account not activated"})
	}

	if err := openUserSession(c, user); err != nil {
		log.Printf("session open failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "login failed"})
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repos.User.Update(user); err != nil {
		log.Printf("failed to update last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":         user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"company_id": user.CompanyID,
			"is_owner":   user.IsOwner,
			"role":       user.Role,
		},
	})
}

// HandleLogout destroys the server-side session.
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			log.Printf("session destroy failed: %v", err)
		}
	}
	return c.JSON(fiber.Map{"message": "logged out"})
}

// openUserSession writes the identity keys the user context middleware reads
// on subsequent requests.
func openUserSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyCompanyID, user.CompanyID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsOwner, user.IsOwner)
	sess.Set(usercontext.KeyIsStaff, user.IsStaff())
	sess.Set(usercontext.AuthKey, true)
	return sess.Save()
}
