// cmd/seeduser/main.go — Crea/actualiza usuario de demo.
// Uso: go run cmd/seeduser/main.go
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"sazonpos/internal/infra"
	"sazonpos/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	path := os.Getenv("DATABASE_PATH")
	if path == "" {
		path = "sazonpos.db"
	}
	username := "admin"
	password := "1234"
	nombre := "Admin Demo"
	email := "admin@sazonpos.local"
	rol := "administrador"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatalf("bcrypt error: %v", err)
	}

	db, err := infra.NewDatabase(path)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	var u model.Usuario
	err = db.Where("username = ?", username).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = model.Usuario{
			Username:     username,
			Nombre:       nombre,
			Email:        &email,
			PasswordHash: string(hash),
			Rol:          rol,
			Activo:       true,
		}
		err = db.Create(&u).Error
	case err == nil:
		u.Nombre = nombre
		u.Email = &email
		u.PasswordHash = string(hash)
		u.Rol = rol
		u.Activo = true
		err = db.Save(&u).Error
	}
	if err != nil {
		log.Fatalf("seed error: %v", err)
	}
	fmt.Printf("✅ Usuario '%s' creado/actualizado con password '%s'\n", username, password)
}
