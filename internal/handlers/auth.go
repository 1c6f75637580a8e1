package handlers

import (
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/freightflow/freightflow-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Phone     string `json:"phone"`
	Role      string `json:"role" binding:"required,oneof=shipper carrier driver"`
	CarrierID *uint  `json:"carrierId"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Register(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		// Carrier and driver accounts must belong to a carrier org.
		if input.Role == string(models.RoleCarrier) || input.Role == string(models.RoleDriver) {
			if input.CarrierID == nil {
				c.JSON(400, gin.H{"error": "carrierId is required for carrier and driver accounts"})
				return
			}
			var carrier models.Carrier
			if err := db.First(&carrier, *input.CarrierID).Error; err != nil {
				c.JSON(400, gin.H{"error": "Unknown carrier"})
				return
			}
		}

		user := models.User{
			Username:  input.Username,
			Email:     input.Email,
			Phone:     input.Phone,
			Role:      models.UserRole(input.Role),
			CarrierID: input.CarrierID,
		}
		if err := user.SetPassword(input.Password); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		if result := db.Create(&user); result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to create user: " + result.Error.Error()})
			return
		}

		// New users get default notification preferences.
		db.Create(models.DefaultPreferences(user.ID))

		c.JSON(201, gin.H{
			"message": "User created successfully",
			"user": gin.H{
				"id":        user.ID,
				"email":     user.Email,
				"username":  user.Username,
				"role":      user.Role,
				"carrierId": user.CarrierID,
			},
		})
	}
}

func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.Where("email = ?", input.Email).First(&user).Error; err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(&user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"user": gin.H{
				"id":        user.ID,
				"email":     user.Email,
				"username":  user.Username,
				"role":      user.Role,
				"carrierId": user.CarrierID,
			},
		})
	}
}

// CreateCarrier registers a carrier org that carrier/driver users attach to.
func CreateCarrier(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name      string `json:"name" binding:"required"`
			MCNumber  string `json:"mcNumber" binding:"required"`
			DOTNumber string `json:"dotNumber"`
			Phone     string `json:"phone"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		carrier := models.Carrier{
			Name:      input.Name,
			MCNumber:  input.MCNumber,
			DOTNumber: input.DOTNumber,
			Phone:     input.Phone,
		}

		if err := db.Create(&carrier).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create carrier"})
			return
		}

		c.JSON(201, carrier)
	}
}
