package admin

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"flagforge/server/audit"
	"flagforge/server/config"
)

// Keys an admin may change through the API. Everything else is rejected so
// a typo cannot plant dead settings.
var editableConfigKeys = map[string]bool{
	"ctf_name":                     true,
	"ctf_start":                    true,
	"ctf_end":                      true,
	"score_freeze_time":            true,
	"registration_open":            true,
	"require_login_challenges":     true,
	"hide_scores_public":           true,
	"scoreboard_visible":           true,
	"configured_waves":             true,
	"active_waves":                 true,
	"play_mode":                    true,
	"max_team_members":             true,
	"default_max_attempts":         true,
	"max_flag_attempts_per_minute": true,
	"categories":                   true,
	"flag_format":                  true,
}

// UpdateConfigRequest sets a single key.
type UpdateConfigRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

// BulkConfigRequest sets several keys at once.
type BulkConfigRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

// ActivateWavesRequest replaces the active wave set.
type ActivateWavesRequest struct {
	Waves []int `json:"waves"`
}

// HandleGetConfig returns every competition setting.
func HandleGetConfig(c *gin.Context, db *sql.DB) {
	settings, err := config.All(db)
	if err != nil {
		log.Printf("read config error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": settings})
}

func validateConfigValue(key, value string) (string, bool) {
	switch key {
	case "ctf_start", "ctf_end", "score_freeze_time":
		if value == "" {
			return "", true
		}
		if _, ok := config.ParseTime(value); !ok {
			return "value is not a recognized timestamp", false
		}
	case "configured_waves", "active_waves":
		var waves []int
		if err := json.Unmarshal([]byte(value), &waves); err != nil {
			return "value must be a JSON array of wave numbers", false
		}
	case "play_mode":
		if value != "individual" && value != "team" && value != "both" {
			return "play mode must be individual, team or both", false
		}
	}
	return "", true
}

// HandleUpdateConfig sets one setting.
func HandleUpdateConfig(c *gin.Context, db *sql.DB) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}
	if !editableConfigKeys[req.Key] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "UNKNOWN_KEY", "message": "unknown config key: " + req.Key})
		return
	}
	if msg, ok := validateConfigValue(req.Key, req.Value); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_VALUE", "message": msg})
		return
	}

	if err := config.Set(db, req.Key, req.Value); err != nil {
		log.Printf("set config error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	adminID := c.GetInt64("userID")
	audit.WriteLog(db, &adminID, audit.ActionConfigUpdate, req.Key+" = "+req.Value, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"key": req.Key, "value": req.Value})
}

// HandleBulkUpdateConfig sets several settings. All values are validated
// before anything is written.
func HandleBulkUpdateConfig(c *gin.Context, db *sql.DB) {
	var req BulkConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}

	for key, value := range req.Settings {
		if !editableConfigKeys[key] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "UNKNOWN_KEY", "message": "unknown config key: " + key})
			return
		}
		if msg, ok := validateConfigValue(key, value); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_VALUE", "message": key + ": " + msg})
			return
		}
	}

	for key, value := range req.Settings {
		if err := config.Set(db, key, value); err != nil {
			log.Printf("set config error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}

	adminID := c.GetInt64("userID")
	keys := make([]string, 0, len(req.Settings))
	for key := range req.Settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	detail := ""
	for i, key := range keys {
		if i > 0 {
			detail += ", "
		}
		detail += key
	}
	audit.WriteLog(db, &adminID, audit.ActionConfigUpdate, "bulk update: "+detail, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"updated": len(req.Settings)})
}

// HandleActivateWaves replaces the active wave set. Every activated wave
// must be among the configured waves.
func HandleActivateWaves(c *gin.Context, db *sql.DB) {
	var req ActivateWavesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}

	var configured []int
	if err := json.Unmarshal([]byte(config.Get(db, "configured_waves", "[]")), &configured); err != nil {
		configured = nil
	}
	configuredSet := make(map[int]bool, len(configured))
	for _, wave := range configured {
		configuredSet[wave] = true
	}
	for _, wave := range req.Waves {
		if !configuredSet[wave] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "UNKNOWN_WAVE", "message": "wave is not configured"})
			return
		}
	}

	if req.Waves == nil {
		req.Waves = []int{}
	}
	encoded, err := json.Marshal(req.Waves)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if err := config.Set(db, "active_waves", string(encoded)); err != nil {
		log.Printf("set active waves error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	adminID := c.GetInt64("userID")
	audit.WriteLog(db, &adminID, audit.ActionWaveActivate, "active_waves = "+string(encoded), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"activeWaves": req.Waves})
}
