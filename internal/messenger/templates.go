package messenger

import "fmt"

const (
	NoFileText          = "⚠️ Debe cargar archivo. Por favor, envíe un archivo (imagen, documento, video, etc.)"
	defaultErrorDetail  = "Error procesando archivo"
	defaultUploadedName = "archivo"
)

func FileUploadedText(filename, companyName, sharedLink string) string {
	if filename == "" {
		filename = defaultUploadedName
	}
	text := fmt.Sprintf("📁 Archivo '%s' cargado exitosamente.", filename)
	if companyName != "" {
		text = fmt.Sprintf("📁 Archivo '%s' cargado exitosamente en la carpeta de %s. ", filename, companyName)
	}
	if sharedLink != "" {
		text += "\n\nEnlace compartido: " + sharedLink
	}
	return text
}

func ErrorText(detail string) string {
	if detail == "" {
		detail = defaultErrorDetail
	}
	return fmt.Sprintf("❌ %s. Por favor, intente nuevamente.", detail)
}
