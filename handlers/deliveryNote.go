package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/nimblebooks/invoicing_backend/workflow"
)

func deliveryNoteIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery note id"})
		return 0, false
	}
	return id, true
}

func GetDeliveryNote(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}
	id, ok := deliveryNoteIdParam(c)
	if !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	note, err := models.GetDeliveryNoteWithItems(db, enterpriseId, id)
	if err != nil {
		respondError(c, "deliveryNote.go", "GetDeliveryNote", err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func ListDeliveryNotes(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var notes []models.DeliveryNote
	if err := db.Where("enterprise_id = ?", enterpriseId).Order("id DESC").Find(&notes).Error; err != nil {
		respondError(c, "deliveryNote.go", "ListDeliveryNotes", err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func UpdateDeliveryNote(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}
	id, ok := deliveryNoteIdParam(c)
	if !ok {
		return
	}
	var input models.UpdateDeliveryNoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := workflow.UpdateDeliveryNote(c.Request.Context(), config.GetDB(), config.GetLogger(), enterpriseId, id, &input)
	if err != nil {
		respondError(c, "deliveryNote.go", "UpdateDeliveryNote", err)
		return
	}
	c.JSON(http.StatusOK, note)
}
