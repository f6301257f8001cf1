package sphericity

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// LoadImage 读取图片并按 EXIF 方向校正，统一转换为 NRGBA
//
// imaging 无法识别的 .webp 文件再尝试用 webp 解码。
func LoadImage(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return imaging.Clone(img), nil
	}

	if strings.EqualFold(filepath.Ext(path), ".webp") {
		f, ferr := os.Open(path)
		if ferr != nil {
			return nil, fmt.Errorf("打开图片失败: %w", ferr)
		}
		defer f.Close()

		wimg, werr := webp.Decode(f)
		if werr == nil {
			return imaging.Clone(wimg), nil
		}
		return nil, fmt.Errorf("webp 解码失败: %w", werr)
	}
	return nil, fmt.Errorf("读取图片失败: %w", err)
}
