package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"resumeforge/internal/auth"
	"resumeforge/internal/catalog"
	"resumeforge/internal/config"
	"resumeforge/internal/database"
	"resumeforge/internal/storage"
)

func main() {
	var (
		seed       = flag.Bool("seed", false, "seed the subscription plan and template catalogs")
		thumbnails = flag.String("thumbnails", "", "directory of thumbnail images to upload to object storage (optional, with --seed)")
		createUser = flag.String("create-user", "", "email of an account to create with a generated password")
	)
	flag.Parse()

	if !*seed && *createUser == "" {
		log.Fatal("nothing to do: pass --seed and/or --create-user")
	}

	cfg := config.MustLoad()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	if *seed {
		if err := catalog.SeedPlans(db); err != nil {
			log.Fatalf("seed plans: %v", err)
		}
		if err := catalog.SeedTemplates(db); err != nil {
			log.Fatalf("seed templates: %v", err)
		}
		fmt.Println("plan and template catalogs seeded")

		if *thumbnails != "" {
			if err := uploadThumbnails(cfg, db, *thumbnails); err != nil {
				log.Fatalf("upload thumbnails: %v", err)
			}
		}
	}

	if *createUser != "" {
		if err := createAccount(db, *createUser); err != nil {
			log.Fatalf("create user: %v", err)
		}
	}
}

func createAccount(db *gorm.DB, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("email must not be empty")
	}

	var existing database.User
	switch err := db.Where("email = ?", email).First(&existing).Error; {
	case err == nil:
		return fmt.Errorf("account %q already exists", email)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query account: %w", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := database.User{
		Email:        email,
		PasswordHash: hashed,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	fmt.Printf("account created:\n")
	fmt.Printf("email: %s\n", email)
	fmt.Printf("password: %s\n", password)
	fmt.Printf("note: the password is shown only once, change it after first login.\n")
	return nil
}

// uploadThumbnails pushes <dir>/<slug>.png files into the bucket under the
// keys the seeded catalog references. Missing files are skipped with a note.
func uploadThumbnails(cfg *config.Config, db *gorm.DB, dir string) error {
	client, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage client: %w", err)
	}

	var templates []database.Template
	if err := db.Find(&templates).Error; err != nil {
		return fmt.Errorf("list templates: %w", err)
	}

	ctx := context.Background()
	for _, t := range templates {
		if t.ThumbnailKey == "" {
			continue
		}
		local := filepath.Join(dir, filepath.Base(t.ThumbnailKey))
		f, err := os.Open(local)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Printf("skipping %s: no file at %s\n", t.Name, local)
				continue
			}
			return fmt.Errorf("open %s: %w", local, err)
		}

		info, err := f.Stat()
		if err != nil {
			f.Close()
			return fmt.Errorf("stat %s: %w", local, err)
		}

		contentType := mime.TypeByExtension(filepath.Ext(local))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if _, err := client.UploadFile(ctx, t.ThumbnailKey, f, info.Size(), contentType); err != nil {
			f.Close()
			return err
		}
		f.Close()
		fmt.Printf("uploaded thumbnail for %s\n", t.Name)
	}
	return nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
