package service

import (
	"context"
	"math"

	"docshare/internal/domain/file"

	"github.com/google/uuid"
)

type Usage struct {
	TotalSize             int64   `json:"total_size"`
	TotalSizeFormatted    string  `json:"total_size_formatted"`
	StorageLimit          int64   `json:"storage_limit"`
	StorageLimitFormatted string  `json:"storage_limit_formatted"`
	Percentage            float64 `json:"percentage"`
	FileCount             int64   `json:"file_count"`
	FolderCount           int64   `json:"folder_count"`
}

type UsageService struct {
	folders FolderStore
	files   FileStore
	quota   int64
}

func NewUsageService(folders FolderStore, files FileStore, quota int64) *UsageService {
	return &UsageService{folders: folders, files: files, quota: quota}
}

// Usage totals the owner's non-trashed files against the storage quota.
func (s *UsageService) Usage(ctx context.Context, ownerID uuid.UUID) (*Usage, error) {
	used, err := s.files.SumOwnerActiveSize(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	fileCount, err := s.files.CountActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	folderCount, err := s.folders.CountActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &Usage{
		TotalSize:             used,
		TotalSizeFormatted:    file.FormatSize(used),
		StorageLimit:          s.quota,
		StorageLimitFormatted: file.FormatSize(s.quota),
		Percentage:            usagePercentage(used, s.quota),
		FileCount:             fileCount,
		FolderCount:           folderCount,
	}, nil
}

// usagePercentage is rounded to two decimals.
func usagePercentage(used, quota int64) float64 {
	if quota <= 0 {
		return 0
	}
	pct := float64(used) / float64(quota) * percentScale
	return math.Round(pct*percentScale) / percentScale
}
