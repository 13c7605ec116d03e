package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tranvuongduy2003/jobrunner/internal/core/serializer"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
)

// FileProcessingPayload is the typed shape a "file_processing" job's
// Payload deserializes into. ProcessingType selects the sub-handler.
type FileProcessingPayload struct {
	ProcessingType string   `json:"processing_type"`
	InputPath      string   `json:"input_path"`
	OutputPath     string   `json:"output_path"`
	FileType       string   `json:"file_type"`
	Destination    string   `json:"destination,omitempty"`
	InputPaths     []string `json:"input_paths,omitempty"`
	OutputDir      string   `json:"output_directory,omitempty"`

	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Quality  int    `json:"quality,omitempty"`
	Format   string `json:"format,omitempty"`
	Optimize bool   `json:"optimize,omitempty"`

	Resolution string `json:"resolution,omitempty"`
	Bitrate    string `json:"bitrate,omitempty"`
	Compress   bool   `json:"compress,omitempty"`

	ConvertTo   string `json:"convert_to,omitempty"`
	ExtractText bool   `json:"extract_text,omitempty"`
	GeneratePDF bool   `json:"generate_pdf,omitempty"`
	Watermark   string `json:"watermark,omitempty"`
}

// FileProcessingService defines the interface for file processing operations.
type FileProcessingService interface {
	ProcessImage(ctx context.Context, inputPath, outputPath string, options ImageProcessingOptions) error
	ProcessVideo(ctx context.Context, inputPath, outputPath string, options VideoProcessingOptions) error
	ProcessDocument(ctx context.Context, inputPath, outputPath string, options DocumentProcessingOptions) error
	ValidateFile(ctx context.Context, filePath string, fileType string) error
}

// StorageService defines the interface for file storage operations.
type StorageService interface {
	UploadFile(ctx context.Context, filePath, destination string) error
	DownloadFile(ctx context.Context, source, destination string) error
	DeleteFile(ctx context.Context, filePath string) error
	GetFileInfo(ctx context.Context, filePath string) (*FileInfo, error)
}

type ImageProcessingOptions struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Quality  int    `json:"quality"`
	Format   string `json:"format"`
	Optimize bool   `json:"optimize"`
}

type VideoProcessingOptions struct {
	Resolution string `json:"resolution"`
	Bitrate    string `json:"bitrate"`
	Format     string `json:"format"`
	Compress   bool   `json:"compress"`
}

type DocumentProcessingOptions struct {
	ConvertTo   string `json:"convert_to"`
	ExtractText bool   `json:"extract_text"`
	GeneratePDF bool   `json:"generate_pdf"`
	Watermark   string `json:"watermark"`
}

// FileInfo represents metadata about a file.
type FileInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileProcessingHandler implements job.Handler for the "file_processing"
// job name.
type FileProcessingHandler struct {
	fileService    FileProcessingService
	storageService StorageService
	serializer     serializer.Serializer
}

func NewFileProcessingHandler(fileService FileProcessingService, storageService StorageService, s serializer.Serializer) *FileProcessingHandler {
	return &FileProcessingHandler{
		fileService:    fileService,
		storageService: storageService,
		serializer:     s,
	}
}

func (h *FileProcessingHandler) Name() string { return "file_processing" }

func (h *FileProcessingHandler) Execute(hctx job.HandlerContext) ([]byte, error) {
	var p FileProcessingPayload
	if err := h.serializer.Deserialize(hctx.Payload, &p); err != nil {
		return nil, fmt.Errorf("invalid file processing payload: %w", err)
	}

	if p.InputPath == "" && p.ProcessingType != "batch" {
		return nil, fmt.Errorf("input_path is required")
	}

	ctx := context.Background()

	var err error
	switch p.ProcessingType {
	case "image":
		err = h.processImage(ctx, p.InputPath, p.OutputPath, p)
	case "video":
		err = h.processVideo(ctx, p.InputPath, p.OutputPath, p)
	case "document":
		err = h.processDocument(ctx, p.InputPath, p.OutputPath, p)
	case "upload":
		err = h.handleUpload(ctx, p)
	case "validation":
		err = h.fileService.ValidateFile(ctx, p.InputPath, p.FileType)
	case "batch":
		err = h.handleBatchProcessing(ctx, p)
	default:
		err = fmt.Errorf("unknown processing type: %s", p.ProcessingType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to process file: %w", err)
	}

	return h.serializer.Serialize(map[string]string{"status": "processed", "processing_type": p.ProcessingType})
}

func (h *FileProcessingHandler) processImage(ctx context.Context, inputPath, outputPath string, p FileProcessingPayload) error {
	options := ImageProcessingOptions{
		Width:    p.Width,
		Height:   p.Height,
		Quality:  orDefault(p.Quality, 90),
		Format:   orDefaultStr(p.Format, "jpg"),
		Optimize: p.Optimize,
	}

	if err := h.fileService.ValidateFile(ctx, inputPath, "image"); err != nil {
		return fmt.Errorf("image validation failed: %w", err)
	}

	return h.fileService.ProcessImage(ctx, inputPath, outputPath, options)
}

func (h *FileProcessingHandler) processVideo(ctx context.Context, inputPath, outputPath string, p FileProcessingPayload) error {
	options := VideoProcessingOptions{
		Resolution: orDefaultStr(p.Resolution, "720p"),
		Bitrate:    orDefaultStr(p.Bitrate, "1000k"),
		Format:     orDefaultStr(p.Format, "mp4"),
		Compress:   p.Compress,
	}

	if err := h.fileService.ValidateFile(ctx, inputPath, "video"); err != nil {
		return fmt.Errorf("video validation failed: %w", err)
	}

	return h.fileService.ProcessVideo(ctx, inputPath, outputPath, options)
}

func (h *FileProcessingHandler) processDocument(ctx context.Context, inputPath, outputPath string, p FileProcessingPayload) error {
	options := DocumentProcessingOptions{
		ConvertTo:   orDefaultStr(p.ConvertTo, "pdf"),
		ExtractText: p.ExtractText,
		GeneratePDF: p.GeneratePDF,
		Watermark:   p.Watermark,
	}

	if err := h.fileService.ValidateFile(ctx, inputPath, "document"); err != nil {
		return fmt.Errorf("document validation failed: %w", err)
	}

	return h.fileService.ProcessDocument(ctx, inputPath, outputPath, options)
}

func (h *FileProcessingHandler) handleUpload(ctx context.Context, p FileProcessingPayload) error {
	if p.Destination == "" {
		return fmt.Errorf("destination is required for upload")
	}

	return h.storageService.UploadFile(ctx, p.InputPath, p.Destination)
}

func (h *FileProcessingHandler) handleBatchProcessing(ctx context.Context, p FileProcessingPayload) error {
	if len(p.InputPaths) == 0 {
		return fmt.Errorf("input_paths must be non-empty for batch processing")
	}

	for _, inputPath := range p.InputPaths {
		outputPath := filepath.Join(p.OutputDir, filepath.Base(inputPath))

		var err error
		switch p.FileType {
		case "image":
			err = h.processImage(ctx, inputPath, outputPath, p)
		case "video":
			err = h.processVideo(ctx, inputPath, outputPath, p)
		case "document":
			err = h.processDocument(ctx, inputPath, outputPath, p)
		default:
			err = fmt.Errorf("unsupported batch processing type: %s", p.FileType)
		}
		if err != nil {
			return fmt.Errorf("failed to process %s: %w", inputPath, err)
		}
	}

	return nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var _ job.Handler = (*FileProcessingHandler)(nil)

// Mock implementations, registered by default so the pipeline is
// exercisable without real media-processing or storage backends.

type MockFileProcessingService struct{}

func NewMockFileProcessingService() *MockFileProcessingService {
	return &MockFileProcessingService{}
}

func (m *MockFileProcessingService) ProcessImage(ctx context.Context, inputPath, outputPath string, options ImageProcessingOptions) error {
	processingTime := 500 * time.Millisecond
	if options.Width > 1000 || options.Height > 1000 {
		processingTime = 2 * time.Second
	}
	time.Sleep(processingTime)

	if strings.Contains(inputPath, "corrupt") {
		return fmt.Errorf("image file appears to be corrupt: %s", inputPath)
	}

	fmt.Printf("image processed: %s -> %s (quality: %d%%)\n", inputPath, outputPath, options.Quality)
	return nil
}

func (m *MockFileProcessingService) ProcessVideo(ctx context.Context, inputPath, outputPath string, options VideoProcessingOptions) error {
	time.Sleep(3 * time.Second)

	if strings.Contains(inputPath, "unsupported") {
		return fmt.Errorf("unsupported video format: %s", inputPath)
	}

	fmt.Printf("video processed: %s -> %s (%s)\n", inputPath, outputPath, options.Resolution)
	return nil
}

func (m *MockFileProcessingService) ProcessDocument(ctx context.Context, inputPath, outputPath string, options DocumentProcessingOptions) error {
	time.Sleep(800 * time.Millisecond)

	fmt.Printf("document processed: %s -> %s (format: %s)\n", inputPath, outputPath, options.ConvertTo)
	return nil
}

func (m *MockFileProcessingService) ValidateFile(ctx context.Context, filePath, fileType string) error {
	time.Sleep(100 * time.Millisecond)

	if strings.Contains(filePath, "missing") {
		return fmt.Errorf("file not found: %s", filePath)
	}

	if !m.isValidFileType(filePath, fileType) {
		return fmt.Errorf("invalid file type for %s processing: %s", fileType, filePath)
	}

	return nil
}

func (m *MockFileProcessingService) isValidFileType(filePath, fileType string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch fileType {
	case "image":
		return ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".gif" || ext == ".bmp"
	case "video":
		return ext == ".mp4" || ext == ".avi" || ext == ".mkv" || ext == ".mov" || ext == ".wmv"
	case "document":
		return ext == ".pdf" || ext == ".doc" || ext == ".docx" || ext == ".txt" || ext == ".rtf"
	default:
		return true
	}
}

type MockStorageService struct{}

func NewMockStorageService() *MockStorageService {
	return &MockStorageService{}
}

func (m *MockStorageService) UploadFile(ctx context.Context, filePath, destination string) error {
	time.Sleep(200 * time.Millisecond)
	fmt.Printf("file uploaded: %s -> %s\n", filePath, destination)
	return nil
}

func (m *MockStorageService) DownloadFile(ctx context.Context, source, destination string) error {
	time.Sleep(300 * time.Millisecond)
	fmt.Printf("file downloaded: %s -> %s\n", source, destination)
	return nil
}

func (m *MockStorageService) DeleteFile(ctx context.Context, filePath string) error {
	time.Sleep(50 * time.Millisecond)
	fmt.Printf("file deleted: %s\n", filePath)
	return nil
}

func (m *MockStorageService) GetFileInfo(ctx context.Context, filePath string) (*FileInfo, error) {
	time.Sleep(50 * time.Millisecond)

	return &FileInfo{
		Name:      filepath.Base(filePath),
		Size:      1024 * 1024,
		MimeType:  "application/octet-stream",
		CreatedAt: time.Now().Add(-24 * time.Hour),
		UpdatedAt: time.Now(),
	}, nil
}
