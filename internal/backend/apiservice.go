package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/jo-hoe/imagecompressor/internal/backend/imageprocessing"
	"github.com/jo-hoe/imagecompressor/internal/common"
	"github.com/jo-hoe/imagecompressor/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const uploadFieldName = "images"

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type uploadResult struct {
	FileName string `json:"fileName"`
	Size     int    `json:"size"`
}

type uploadResponse struct {
	Message      string         `json:"message"`
	Results      []uploadResult `json:"results"`
	UserID       string         `json:"userId"`
	DownloadLink string         `json:"downloadLink"`
}

type uploadErrorResponse struct {
	Message      string   `json:"message"`
	InvalidFiles []string `json:"invalidFiles,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  s.config.CORS.AllowOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
		MaxAge:        86400,
	}))

	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	e.POST("/upload", s.uploadHandler)
	e.GET("/download/:userId", s.downloadHandler)

	s.setAuthRoutes(e)
}

func (s *APIService) uploadHandler(ctx echo.Context) error {
	files, err := readUploadedFiles(ctx)
	if err != nil {
		slog.Error("failed to read upload", "error", err)
		return ctx.JSON(http.StatusInternalServerError, uploadErrorResponse{
			Message: "Error processing images.",
			Error:   err.Error(),
		})
	}

	req := imageprocessing.BatchRequest{
		Files:           files,
		Brand:           imageprocessing.Brand(ctx.QueryParam("selectedOption")),
		Category:        imageprocessing.Category(ctx.QueryParam("category")),
		FeatureWidth:    queryInt(ctx, "resolution[feature]"),
		NonFeatureWidth: queryInt(ctx, "resolution[nonFeature]"),
	}

	result, err := s.coreService.ProcessBatch(ctx.Request().Context(), req)
	if err != nil {
		var validationErr *common.ValidationError
		if errors.As(err, &validationErr) {
			return ctx.JSON(http.StatusBadRequest, uploadErrorResponse{
				Message:      validationErr.Message,
				InvalidFiles: validationErr.InvalidFiles,
			})
		}
		return ctx.JSON(http.StatusInternalServerError, uploadErrorResponse{
			Message: "Error processing images.",
			Error:   err.Error(),
		})
	}

	results := make([]uploadResult, 0, len(result.Results))
	for _, r := range result.Results {
		results = append(results, uploadResult{FileName: r.FileName, Size: r.Size})
	}

	return ctx.JSON(http.StatusOK, uploadResponse{
		Message:      "Images processed successfully.",
		Results:      results,
		UserID:       result.BatchID,
		DownloadLink: "/download/" + result.BatchID,
	})
}

// readUploadedFiles reads every file of the images field into memory.
// A request that is not multipart counts as an upload without files.
func readUploadedFiles(ctx echo.Context) ([]imageprocessing.UploadedFile, error) {
	form, err := ctx.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	headers := form.File[uploadFieldName]
	files := make([]imageprocessing.UploadedFile, 0, len(headers))
	for _, header := range headers {
		data, err := readFormFile(header)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", header.Filename, err)
		}
		files = append(files, imageprocessing.UploadedFile{Name: header.Filename, Data: data})
	}
	return files, nil
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()
	return io.ReadAll(file)
}

func queryInt(ctx echo.Context, name string) int {
	value, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil {
		return 0
	}
	return value
}

func (s *APIService) downloadHandler(ctx echo.Context) error {
	batchID := ctx.Param("userId")

	reader, info, err := s.coreService.OpenArchive(ctx.Request().Context(), batchID)
	if err != nil {
		var notFoundErr *common.NotFoundError
		if errors.As(err, &notFoundErr) {
			return ctx.String(http.StatusNotFound, "User folder not found.")
		}
		slog.Error("failed to prepare archive", "batch_id", batchID, "error", err)
		return ctx.String(http.StatusInternalServerError, "Error processing your request.")
	}
	defer func() {
		_ = reader.Close()
	}()

	header := ctx.Response().Header()
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", info.Name))
	header.Set(echo.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	return ctx.Stream(http.StatusOK, "application/zip", reader)
}
