package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
)

// ErrTemplateNotFound - файл шаблона описания отсутствует
var ErrTemplateNotFound = errors.New("description template not found")

// DescriptionService подставляет атрибуты персонажа в текстовый шаблон.
// Шаблон читается с диска при каждом вызове.
type DescriptionService struct {
	templatePath string
	readFile     func(name string) ([]byte, error)
}

// NewDescriptionService создает сервис для шаблона по указанному пути
func NewDescriptionService(templatePath string) *DescriptionService {
	return &DescriptionService{
		templatePath: templatePath,
		readFile:     os.ReadFile,
	}
}

// Render читает шаблон и заменяет $name, $species, $type, $gender
func (s *DescriptionService) Render(character *entity.Character) (string, error) {
	data, err := s.readFile(s.templatePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, s.templatePath)
		}
		return "", fmt.Errorf("failed to read description template: %w", err)
	}
	return RenderDescription(string(data), character), nil
}

// RenderDescription выполняет подстановку за один проход: значение,
// содержащее плейсхолдер, повторно не раскрывается.
func RenderDescription(template string, character *entity.Character) string {
	replacer := strings.NewReplacer(
		"$name", character.Name,
		"$species", character.Species,
		"$type", character.Type,
		"$gender", character.Gender,
	)
	return replacer.Replace(template)
}
