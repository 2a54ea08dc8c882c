package repository

import "context"

// GPXFileRepository загружает опубликованные GPX файлы
// официальных circuits (ленивая гидратация RealTrack)
type GPXFileRepository interface {
	// Fetch возвращает содержимое GPX файла по относительному пути
	Fetch(ctx context.Context, path string) ([]byte, error)
}
