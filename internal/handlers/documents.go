package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/freightflow/freightflow-backend/internal/access"
	"github.com/freightflow/freightflow-backend/internal/apperr"
	"github.com/freightflow/freightflow-backend/internal/audit"
	"github.com/freightflow/freightflow-backend/internal/models"
	"github.com/freightflow/freightflow-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RequestDocumentUpload returns a presigned upload target for a document
// file. The document row itself is created afterwards via CreateDocument,
// once the client has finished the upload.
func RequestDocumentUpload(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		loadID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, false)
		if err != nil {
			fail(c, err)
			return
		}

		var input struct {
			FileName string `json:"fileName" binding:"required"`
			MimeType string `json:"mimeType" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		target, err := services.NewDocumentUploadTarget(load.ID, input.FileName, input.MimeType)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, target)
	}
}

// CreateDocument records an uploaded document against a load.
func CreateDocument(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		loadID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, false)
		if err != nil {
			fail(c, err)
			return
		}

		var input struct {
			Type     string `json:"type" binding:"required"`
			Name     string `json:"name" binding:"required"`
			FileURL  string `json:"fileUrl" binding:"required"`
			FileSize int64  `json:"fileSize"`
			MimeType string `json:"mimeType"`
			Notes    string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if !models.ValidDocumentType(input.Type) {
			c.JSON(400, gin.H{"error": "Unknown document type"})
			return
		}

		doc := models.Document{
			LoadID:             load.ID,
			UploadedBy:         user.ID,
			Type:               input.Type,
			Name:               input.Name,
			FileURL:            input.FileURL,
			FileSize:           input.FileSize,
			MimeType:           input.MimeType,
			Notes:              input.Notes,
			VerificationStatus: models.VerificationPending,
			IsActive:           true,
		}

		var notifs []services.NotificationInput
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&doc).Error; err != nil {
				return err
			}
			if err := audit.Record(tx, audit.Entry{
				LoadID:      load.ID,
				UserID:      user.ID,
				EventType:   models.EventDocumentUploaded,
				NewValue:    doc.Type,
				Notes:       doc.Name,
				Metadata:    map[string]interface{}{"documentId": doc.ID, "fileSize": doc.FileSize},
				ActionType:  models.ActionDocumentUploaded,
				Description: fmt.Sprintf("Document %q (%s) uploaded to load %s", doc.Name, doc.Type, load.ReferenceNumber),
				After:       doc,
			}); err != nil {
				return err
			}

			// BOL and POD matter to the shipper; a rate confirmation is
			// something the carrier has to sign, so it demands action.
			switch doc.Type {
			case models.DocumentTypeBOL, models.DocumentTypePOD:
				if user.ID != load.ShipperID {
					notifs = append(notifs, services.NotificationInput{
						UserID: load.ShipperID,
						Type:   models.NotificationDocumentUploaded,
						Title:  "Document uploaded",
						Body:   fmt.Sprintf("%s uploaded for load %s", doc.Name, load.ReferenceNumber),
						LoadID: &load.ID,
					})
				}
			case models.DocumentTypeRateConfirmation:
				if load.CarrierID != nil {
					notifs = append(notifs, carrierUserNotifications(tx, *load.CarrierID, services.NotificationInput{
						Type:             models.NotificationDocumentUploaded,
						Title:            "Rate confirmation ready",
						Body:             fmt.Sprintf("Rate confirmation uploaded for load %s", load.ReferenceNumber),
						LoadID:           &load.ID,
						IsActionRequired: true,
						ActionURL:        fmt.Sprintf("/loads/%d/documents", load.ID),
					})...)
				}
			}
			return services.CreateNotifications(tx, notifs)
		})
		if err != nil {
			fail(c, err)
			return
		}

		go services.Deliver(db, nil, notifs, &services.DomainEventMessage{
			EventType:    models.EventDocumentUploaded,
			LoadID:       load.ID,
			ReferenceNum: load.ReferenceNumber,
			UserID:       user.ID,
			NewValue:     doc.Type,
		})

		c.JSON(201, doc)
	}
}

// VerifyDocument moves a pending document to verified or rejected.
func VerifyDocument(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		if err := access.RequireRole(user, models.RoleShipper, models.RoleCarrier, models.RoleAdmin); err != nil {
			fail(c, err)
			return
		}

		var doc models.Document
		if err := db.First(&doc, docID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, fmt.Errorf("%w: document", apperr.ErrNotFound))
				return
			}
			fail(c, err)
			return
		}

		load, err := access.AuthorizeLoad(db, user, doc.LoadID, false)
		if err != nil {
			fail(c, err)
			return
		}
		if doc.VerificationStatus != models.VerificationPending {
			fail(c, fmt.Errorf("%w: document has already been %s", apperr.ErrInvalidState, doc.VerificationStatus))
			return
		}

		var input struct {
			Status string `json:"status" binding:"required,oneof=verified rejected"`
			Notes  string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		now := time.Now()
		var notifs []services.NotificationInput
		err = db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Document{}).
				Where("id = ? AND verification_status = ?", doc.ID, models.VerificationPending).
				Updates(map[string]interface{}{
					"verification_status": input.Status,
					"verified_by":         user.ID,
					"verified_at":         now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("%w: document is no longer pending", apperr.ErrInvalidState)
			}

			if err := audit.Record(tx, audit.Entry{
				LoadID:        load.ID,
				UserID:        user.ID,
				EventType:     models.EventDocumentVerified,
				PreviousValue: models.VerificationPending,
				NewValue:      input.Status,
				Notes:         input.Notes,
				Metadata:      map[string]interface{}{"documentId": doc.ID, "documentType": doc.Type},
				ActionType:    models.ActionDocumentVerified,
				Description:   fmt.Sprintf("Document %q marked %s on load %s", doc.Name, input.Status, load.ReferenceNumber),
			}); err != nil {
				return err
			}

			if doc.UploadedBy != user.ID {
				notifs = []services.NotificationInput{{
					UserID: doc.UploadedBy,
					Type:   models.NotificationDocumentVerified,
					Title:  fmt.Sprintf("Document %s", input.Status),
					Body:   fmt.Sprintf("%q on load %s was %s", doc.Name, load.ReferenceNumber, input.Status),
					LoadID: &load.ID,
				}}
			}
			return services.CreateNotifications(tx, notifs)
		})
		if err != nil {
			fail(c, err)
			return
		}

		go services.Deliver(db, nil, notifs, nil)

		c.JSON(200, gin.H{"message": "Document " + input.Status})
	}
}

// DeleteDocument removes a document. The row is hard deleted; the audit
// trail keeps the document's name and type so the deletion stays traceable.
func DeleteDocument(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}

		var doc models.Document
		if err := db.First(&doc, docID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, fmt.Errorf("%w: document", apperr.ErrNotFound))
				return
			}
			fail(c, err)
			return
		}

		load, err := access.AuthorizeLoad(db, user, doc.LoadID, false)
		if err != nil {
			fail(c, err)
			return
		}
		// Uploader, owning shipper, or admin.
		if user.Role != models.RoleAdmin && doc.UploadedBy != user.ID && user.ID != load.ShipperID {
			fail(c, fmt.Errorf("%w: only the uploader or the load's shipper can delete a document", apperr.ErrForbidden))
			return
		}
		if doc.VerificationStatus == models.VerificationVerified && user.Role != models.RoleAdmin {
			fail(c, fmt.Errorf("%w: verified documents cannot be deleted", apperr.ErrInvalidState))
			return
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Unscoped().Delete(&doc).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				LoadID:        load.ID,
				UserID:        user.ID,
				EventType:     models.EventDocumentDeleted,
				PreviousValue: doc.Name,
				Metadata:      map[string]interface{}{"documentId": doc.ID, "documentType": doc.Type},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Document deleted"})
	}
}

// GetLoadDocuments lists documents on a load for anyone the gate admits.
func GetLoadDocuments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		loadID, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		user, err := currentUser(c, db)
		if err != nil {
			fail(c, err)
			return
		}
		load, err := access.AuthorizeLoad(db, user, loadID, true)
		if err != nil {
			fail(c, err)
			return
		}

		query := db.Preload("Uploader").Preload("Verifier").Where("load_id = ?", load.ID)
		if docType := c.Query("type"); docType != "" {
			query = query.Where("type = ?", docType)
		}
		if status := c.Query("verificationStatus"); status != "" {
			query = query.Where("verification_status = ?", status)
		}

		var docs []models.Document
		if err := query.Order("created_at DESC").Find(&docs).Error; err != nil {
			fail(c, err)
			return
		}

		c.JSON(200, docs)
	}
}
