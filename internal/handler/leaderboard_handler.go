package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/service"
)

// LeaderboardHandler отдает таблицу очков викторины по HTTP
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

// NewLeaderboardHandler создает новый обработчик лидерборда
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
	}
}

// GetLeaderboard обрабатывает запрос на получение лидерборда
// GET /api/leaderboard?page=1&page_size=10&sort=registration|score
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	pageStr := c.DefaultQuery("page", "1")
	pageSizeStr := c.DefaultQuery("page_size", "10")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize < 1 {
		pageSize = 10
	} else if pageSize > 100 {
		pageSize = 100
	}

	leaderboard, err := h.leaderboardService.GetLeaderboard(page, pageSize, c.DefaultQuery("sort", service.SortRegistration))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error getting leaderboard"})
		return
	}

	c.JSON(http.StatusOK, leaderboard)
}

// ExportLeaderboard выгружает всю таблицу очков в CSV или Excel
// GET /api/leaderboard/export?format=csv|xlsx&sort=registration|score
func (h *LeaderboardHandler) ExportLeaderboard(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	players, err := h.leaderboardService.Snapshot(c.DefaultQuery("sort", service.SortRegistration))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error exporting leaderboard"})
		return
	}

	filename := fmt.Sprintf("leaderboard_%s", time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, players, filename)
	default:
		h.exportCSV(c, players, filename)
	}
}

var exportHeaders = []string{"Rank", "Player ID", "Name", "Score", "Character"}

func exportRow(p *entity.Player) (name, character string) {
	name = sanitizeForExcel(p.Name)
	if p.Character != nil {
		character = sanitizeForExcel(p.Character.Name)
	}
	return name, character
}

func (h *LeaderboardHandler) exportCSV(c *gin.Context, players []*entity.Player, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for i, p := range players {
		name, character := exportRow(p)
		writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(p.ID, 10),
			name,
			strconv.Itoa(p.Score),
			character,
		})
	}
}

// exportXLSX пишет файл через StreamWriter, чтобы не держать все ячейки в памяти
func (h *LeaderboardHandler) exportXLSX(c *gin.Context, players []*entity.Player, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Leaderboard"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[LeaderboardHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, title := range exportHeaders {
		headers[i] = title
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка записи заголовков: %v", err)
	}

	for i, p := range players {
		rowNum := i + 2
		name, character := exportRow(p)
		row := []interface{}{i + 1, p.ID, name, p.Score, character}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			log.Printf("[LeaderboardHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка при Flush: %v", err)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует имена игроков от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
