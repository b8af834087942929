package entity

import "time"

// Part 零件，文件与矢量预览存放在对象存储
type Part struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	OwnerID    string    `json:"-" gorm:"size:32;not null;index"`
	Name       string    `json:"name" gorm:"size:128;not null"`
	FileKey    *string   `json:"file_key" gorm:"size:512"`
	FileName   *string   `json:"file_name" gorm:"size:256"`
	PreviewKey *string   `json:"preview_key" gorm:"size:512"` // 2D SVG
	UploadedAt time.Time `json:"uploaded_at"`
}

func (Part) TableName() string {
	return "parts"
}

// FileReference is the bare reference handed to the generator when no vector
// preview is available.
func (p *Part) FileReference() string {
	switch {
	case p.FileName != nil && p.FileKey != nil:
		return *p.FileName + " (" + *p.FileKey + ")"
	case p.FileKey != nil:
		return *p.FileKey
	case p.FileName != nil:
		return *p.FileName
	}
	return "no file uploaded"
}
