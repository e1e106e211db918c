package maintenance

import (
	"log/slog"

	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	filestorage "github.com/aisa-it/aibudget/internal/aibudget/file-storage"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type AssetsCleaner struct {
	db *gorm.DB
	si filestorage.FileStorage
}

func NewAssetCleaner(db *gorm.DB, si filestorage.FileStorage) *AssetsCleaner {
	return &AssetsCleaner{db, si}
}

// CleanAssets удаляет из хранилища файлы, на которые не ссылается ни одно
// вложение.
func (ac *AssetsCleaner) CleanAssets() {
	slog.Info("Start assets cleaning")
	var removed int
	if err := ac.si.ListRoot(func(fi filestorage.FileInfo) error {
		id, err := uuid.FromString(fi.Name)
		if err != nil {
			// Not ours, leave it alone
			return nil
		}

		var exist bool
		if err := ac.db.
			Where("id = ?", id).
			Select("count(*) > 0").
			Model(&dao.Attachment{}).
			Find(&exist).Error; err != nil {
			return err
		}
		if exist {
			return nil
		}
		if err := ac.si.Delete(id); err != nil {
			return err
		}
		removed++
		return nil
	}); err != nil {
		slog.Error("Clean assets fail", "err", err)
	}
	slog.Info("Finish assets cleaning", "removed", removed)
}
