package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Dir - каталог Docker Secrets.
var Dir = "/run/secrets"

// Read читает секрет из файла Docker Secrets. Если файла нет, используется переменная
// окружения с именем секрета в верхнем регистре (для локального запуска).
func Read(name string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", Dir, name)
	secretBytes, err := os.ReadFile(filePath)
	if err == nil {
		secret := strings.TrimSpace(string(secretBytes))
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", filePath)
		}
		return secret, nil
	}

	envName := strings.ToUpper(name)
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secret %s not found in %s or env %s: %w", name, filePath, envName, err)
}

// ReadOptional возвращает пустую строку, если секрет не задан.
func ReadOptional(name string) string {
	v, err := Read(name)
	if err != nil {
		return ""
	}
	return v
}
