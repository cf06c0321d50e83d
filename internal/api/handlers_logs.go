package api

import (
	"archive/zip"
	"bufio"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mescon/Hassarr/internal/config"
	"github.com/mescon/Hassarr/internal/logger"
)

const recentLogLines = 100

func (s *RESTServer) handleDownloadLogs(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=hassarr_logs.zip")
	c.Header("Content-Type", "application/zip")

	zipWriter := zip.NewWriter(c.Writer)
	defer zipWriter.Close()

	err := filepath.Walk(config.Get().LogDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		// .txt opens directly on Windows
		name := filepath.Base(path)
		if strings.HasSuffix(name, ".log") {
			name = strings.TrimSuffix(name, ".log") + ".txt"
		}
		header.Name = name
		header.Method = zip.Deflate

		writer, err := zipWriter.CreateHeader(header)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		return err
	})
	if err != nil {
		logger.Errorf("Failed to zip logs: %v", err)
	}
}

// parseLogLine splits "timestamp [LEVEL] message". ok is false for lines
// in any other format.
func parseLogLine(line string) (logger.LogEntry, bool) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if len(parts) < 3 || !strings.HasPrefix(parts[1], "[") || !strings.HasSuffix(parts[1], "]") {
		return logger.LogEntry{}, false
	}
	return logger.LogEntry{
		Timestamp: parts[0],
		Level:     logger.LogLevel(strings.Trim(parts[1], "[]")),
		Message:   parts[2],
	}, true
}

// handleRecentLogs returns the last log entries of the current log file.
func (s *RESTServer) handleRecentLogs(c *gin.Context) {
	file, err := os.Open(filepath.Join(config.Get().LogDir, logger.LogFileName))
	if os.IsNotExist(err) {
		c.JSON(http.StatusOK, []logger.LogEntry{})
		return
	}
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to read log file", err)
		return
	}
	defer file.Close()

	// Ring of the last recentLogLines lines
	ring := make([]string, 0, recentLogLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == recentLogLines {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		respondWithError(c, http.StatusInternalServerError, "Failed to scan log file", err)
		return
	}

	entries := make([]logger.LogEntry, 0, len(ring))
	for _, line := range ring {
		if entry, ok := parseLogLine(line); ok {
			entries = append(entries, entry)
		}
	}
	c.JSON(http.StatusOK, entries)
}
