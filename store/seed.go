package store

import (
	"time"

	"danang-green/models"
)

// SeedReports returns the example reports shown on a fresh install, newest first
func SeedReports(now time.Time) []models.ReportRecord {
	now = now.UTC()
	return []models.ReportRecord{
		{
			ID:        "seed-landslide-son-tra",
			MediaURL:  "https://storage.googleapis.com/static-ai-apps/media/Da_Nang_Landslide.mp4",
			MediaKind: models.MediaVideo,
			Position:  models.GeoPosition{Latitude: 16.115, Longitude: 108.27},
			UserNote:  "Sạt lở đất đá trên đường lên Sơn Trà, rất nguy hiểm.",
			Analysis: models.AIAnalysis{
				IssueType:    models.IssueLandslide,
				Description:  "Một lượng lớn đất đá đã sạt lở xuống lòng đường, chặn một phần lối đi và có nguy cơ tiếp tục sạt lở.",
				Priority:     models.PriorityHigh,
				Remedy:       "Cần phong tỏa khu vực, đặt biển báo nguy hiểm và cử đội công trình đến khắc phục ngay lập tức.",
				IssuePresent: true,
			},
			Status:    models.StatusNew,
			CreatedAt: now.Add(-3 * time.Hour),
		},
		{
			ID:        "seed-flooding-nguyen-van-linh",
			MediaURL:  "https://storage.googleapis.com/static-ai-apps/media/Da_Nang_Flooding.mp4",
			MediaKind: models.MediaVideo,
			Position:  models.GeoPosition{Latitude: 16.0601, Longitude: 108.2225},
			UserNote:  "Đường ngập sâu sau trận mưa lớn, xe cộ không đi lại được.",
			Analysis: models.AIAnalysis{
				IssueType:    models.IssueFlooding,
				Description:  "Khu vực đường Nguyễn Văn Linh bị ngập sâu, cản trở giao thông nghiêm trọng.",
				Priority:     models.PriorityHigh,
				Remedy:       "Cảnh báo người dân, điều tiết giao thông và huy động đội thoát nước khơi thông hệ thống cống.",
				IssuePresent: true,
			},
			Status:    models.StatusInProgress,
			CreatedAt: now.Add(-24 * time.Hour),
		},
		{
			ID:        "seed-littering-dragon-bridge",
			MediaURL:  "https://images.unsplash.com/photo-1598692294285-649a6f18638b?q=80&w=2070&auto=format&fit=crop",
			MediaKind: models.MediaImage,
			Position:  models.GeoPosition{Latitude: 16.0748, Longitude: 108.2236},
			UserNote:  "Rác thải sinh hoạt vứt bừa bãi gần Cầu Rồng.",
			Analysis: models.AIAnalysis{
				IssueType:    models.IssueLittering,
				Description:  "Một lượng lớn rác thải sinh hoạt, bao gồm túi ni lông và hộp, đã tích tụ ở khu vực công cộng.",
				Priority:     models.PriorityHigh,
				Remedy:       "Cần đội vệ sinh môi trường đến thu gom và lắp đặt thêm thùng rác tại khu vực này.",
				IssuePresent: true,
			},
			Status:    models.StatusNew,
			CreatedAt: now.Add(-48 * time.Hour),
		},
		{
			ID:        "seed-vegetation-city-center",
			MediaURL:  "https://images.unsplash.com/photo-1523348835941-8d5a77ecaf2a?q=80&w=1974&auto=format&fit=crop",
			MediaKind: models.MediaImage,
			Position:  models.GeoPosition{Latitude: 16.0544, Longitude: 108.2022},
			UserNote:  "Cây xanh gãy đổ chắn lối đi bộ.",
			Analysis: models.AIAnalysis{
				IssueType:    models.IssueVegetation,
				Description:  "Cành cây lớn gãy đổ trên vỉa hè sau mưa bão.",
				Priority:     models.PriorityLow,
				Remedy:       "Cắt tỉa và dọn dẹp cành cây, kiểm tra các cây xung quanh.",
				IssuePresent: true,
			},
			Status:    models.StatusResolved,
			CreatedAt: now.Add(-5 * 24 * time.Hour),
		},
	}
}
