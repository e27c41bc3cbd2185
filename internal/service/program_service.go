package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/export"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/internal/storage"
)

var (
	ErrInvalidProgram        = errors.New("invalid program")
	ErrDuplicateProgramTitle = errors.New("a program with this title already exists")
)

// --- Input and output shapes ---

// ProgramInput is the full program tree accepted on create and update.
type ProgramInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Days        []DayInput `json:"days"`
}

type DayInput struct {
	DayNumber int          `json:"dayNumber"`
	Blocks    []BlockInput `json:"blocks"`
}

type BlockInput struct {
	Title     string           `json:"title"`
	Type      domain.BlockType `json:"type"`
	Exercises []ExerciseInput  `json:"exercises"`
}

// ExerciseInput leaves Sets optional; it defaults to 1.
type ExerciseInput struct {
	Name string           `json:"name"`
	Sets *int             `json:"sets"`
	Reps *int             `json:"reps"`
	Time *domain.Duration `json:"time"`
	Type domain.BlockType `json:"type"`
}

// ProgramDetail is a program with its full day -> block -> exercise hierarchy.
type ProgramDetail struct {
	domain.Program
	Days []ProgramDay `json:"days"`
}

type ProgramDay struct {
	ID        string         `json:"id"`
	DayNumber int            `json:"dayNumber"`
	Blocks    []ProgramBlock `json:"blocks"`
}

type ProgramBlock struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Type      domain.BlockType  `json:"type"`
	Order     int               `json:"order"`
	Exercises []domain.Exercise `json:"exercises"`
}

// ExportResult holds either an uploaded export or, without object storage, the raw workbook.
type ExportResult struct {
	Export   *domain.ProgramExport
	Workbook *bytes.Buffer
	FileName string
}

type ProgramService interface {
	List(ctx context.Context, coachID string) ([]domain.Program, error)
	Get(ctx context.Context, coachID, programID string) (*ProgramDetail, error)
	Create(ctx context.Context, coachID string, in ProgramInput) (*ProgramDetail, error)
	Update(ctx context.Context, coachID, programID string, in ProgramInput) (*ProgramDetail, error)
	Delete(ctx context.Context, coachID, programID string) error
	ExportWeek(ctx context.Context, coachID, programID string, weekNumber int) (*ExportResult, error)
}

type programService struct {
	tx                  repository.Transactor
	programRepo         repository.ProgramRepository
	scheduleRepo        repository.ScheduleRepository
	enrollmentRepo      repository.EnrollmentRepository
	personalizationRepo repository.PersonalizationRepository
	serializer          ProgramSerializer
	fileStorage         storage.FileStorage // nil disables uploads
	logger              *slog.Logger
}

// NewProgramService creates a program service. fileStorage may be nil.
func NewProgramService(
	tx repository.Transactor,
	programRepo repository.ProgramRepository,
	scheduleRepo repository.ScheduleRepository,
	enrollmentRepo repository.EnrollmentRepository,
	personalizationRepo repository.PersonalizationRepository,
	serializer ProgramSerializer,
	fileStorage storage.FileStorage,
	logger *slog.Logger,
) ProgramService {
	return &programService{
		tx:                  tx,
		programRepo:         programRepo,
		scheduleRepo:        scheduleRepo,
		enrollmentRepo:      enrollmentRepo,
		personalizationRepo: personalizationRepo,
		serializer:          serializer,
		fileStorage:         fileStorage,
		logger:              logger,
	}
}

func (s *programService) List(ctx context.Context, coachID string) ([]domain.Program, error) {
	return s.programRepo.ListByCreator(ctx, coachID)
}

func (s *programService) Get(ctx context.Context, coachID, programID string) (*ProgramDetail, error) {
	program, err := s.ownedProgram(ctx, coachID, programID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, program)
}

// Create stores the program and its whole tree in one transaction.
func (s *programService) Create(ctx context.Context, coachID string, in ProgramInput) (*ProgramDetail, error) {
	// 1. Validate and normalize input
	if err := normalizeProgramInput(&in); err != nil {
		return nil, err
	}

	program := &domain.Program{CreatorID: coachID, Title: in.Title, Description: in.Description}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// 2. Title must be unique for the creator
		if err := s.checkTitleAvailable(ctx, coachID, in.Title, ""); err != nil {
			return err
		}
		// 3. Program row, then the nested structure
		if _, err := s.programRepo.Create(ctx, program); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDuplicateProgramTitle
			}
			return fmt.Errorf("create program: %w", err)
		}
		return s.writeDays(ctx, program.ID, in.Days)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Program created", "program_id", program.ID, "days", len(in.Days))
	return s.detail(ctx, program)
}

// Update replaces metadata and the whole nested structure in one transaction.
func (s *programService) Update(ctx context.Context, coachID, programID string, in ProgramInput) (*ProgramDetail, error) {
	if err := normalizeProgramInput(&in); err != nil {
		return nil, err
	}

	var program *domain.Program
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		// 1. Ownership
		program, err = s.ownedProgram(ctx, coachID, programID)
		if err != nil {
			return err
		}
		// 2. Unique title, excluding the program itself
		if err = s.checkTitleAvailable(ctx, coachID, in.Title, programID); err != nil {
			return err
		}
		// 3. Metadata
		program.Title = in.Title
		program.Description = in.Description
		if err = s.programRepo.Update(ctx, program); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDuplicateProgramTitle
			}
			return fmt.Errorf("update program: %w", err)
		}
		// 4. Delete-all-and-recreate of the nested structure
		if err = s.scheduleRepo.DeleteByProgram(ctx, programID); err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}
		return s.writeDays(ctx, programID, in.Days)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Program updated", "program_id", programID)
	return s.detail(ctx, program)
}

// Delete cascades to the schedule, enrollments and personalizations of the program.
func (s *programService) Delete(ctx context.Context, coachID, programID string) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ownedProgram(ctx, coachID, programID); err != nil {
			return err
		}
		if err := s.personalizationRepo.DeleteByProgram(ctx, programID); err != nil {
			return fmt.Errorf("delete personalizations: %w", err)
		}
		if err := s.enrollmentRepo.DeleteByProgram(ctx, programID); err != nil {
			return fmt.Errorf("delete enrollments: %w", err)
		}
		if err := s.scheduleRepo.DeleteByProgram(ctx, programID); err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}
		if err := s.programRepo.Delete(ctx, programID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrProgramNotFound
			}
			return fmt.Errorf("delete program: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Program deleted", "program_id", programID)
	return nil
}

// ExportWeek renders one week as a workbook and uploads it when storage is configured.
func (s *programService) ExportWeek(ctx context.Context, coachID, programID string, weekNumber int) (*ExportResult, error) {
	if _, err := s.ownedProgram(ctx, coachID, programID); err != nil {
		return nil, err
	}
	doc, err := s.serializer.SerializeWeek(ctx, programID, weekNumber)
	if err != nil {
		return nil, err
	}
	workbook, err := export.WeekWorkbook(doc)
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	fileName := fmt.Sprintf("%s-week-%d.xlsx", slug(doc.Title), weekNumber)
	if s.fileStorage == nil {
		return &ExportResult{Workbook: workbook, FileName: fileName}, nil
	}

	key := fmt.Sprintf("exports/%s/week-%d/%s.xlsx", programID, weekNumber, uuid.NewString())
	if err = s.fileStorage.PutObject(ctx, key, export.ContentType, workbook); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, key, storage.DefaultPresignedURLExpiry)
	if err != nil {
		// Nobody can download an unsigned export.
		if delErr := s.fileStorage.DeleteObject(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to remove unsigned export", "object_key", key, "error", delErr)
		}
		return nil, fmt.Errorf("presign export: %w", err)
	}

	s.logger.InfoContext(ctx, "Program week exported", "program_id", programID, "week", weekNumber, "object_key", key)
	return &ExportResult{
		Export: &domain.ProgramExport{
			ProgramID:   programID,
			WeekNumber:  weekNumber,
			ObjectKey:   key,
			DownloadURL: url,
		},
		FileName: fileName,
	}, nil
}

// --- Helpers ---

// ownedProgram hides programs of other coaches behind ErrProgramNotFound.
func (s *programService) ownedProgram(ctx context.Context, coachID, programID string) (*domain.Program, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, fmt.Errorf("load program %s: %w", programID, err)
	}
	if program.CreatorID != coachID {
		return nil, ErrProgramNotFound
	}
	return program, nil
}

func (s *programService) checkTitleAvailable(ctx context.Context, coachID, title, selfID string) error {
	existing, err := s.programRepo.GetByCreatorAndTitle(ctx, coachID, title)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check program title: %w", err)
	case existing.ID != selfID:
		return ErrDuplicateProgramTitle
	}
	return nil
}

// writeDays inserts days, blocks (1-based order within the day) and exercises.
func (s *programService) writeDays(ctx context.Context, programID string, days []DayInput) error {
	for _, d := range days {
		day := &domain.DayPlan{ProgramID: programID, DayNumber: d.DayNumber}
		if _, err := s.scheduleRepo.CreateDayPlan(ctx, day); err != nil {
			return fmt.Errorf("create day %d: %w", d.DayNumber, err)
		}
		for i, b := range d.Blocks {
			block := &domain.WodBloc{Title: b.Title, Type: b.Type}
			if _, err := s.scheduleRepo.CreateBlock(ctx, day.ID, i+1, block); err != nil {
				return fmt.Errorf("create block %q: %w", b.Title, err)
			}
			for _, e := range b.Exercises {
				exercise := &domain.Exercise{Name: e.Name, Sets: *e.Sets, Reps: e.Reps, Time: e.Time, Type: e.Type}
				if _, err := s.scheduleRepo.CreateExercise(ctx, block.ID, exercise); err != nil {
					return fmt.Errorf("create exercise %q: %w", e.Name, err)
				}
			}
		}
	}
	return nil
}

func (s *programService) detail(ctx context.Context, program *domain.Program) (*ProgramDetail, error) {
	days, err := s.scheduleRepo.ListAllDayPlans(ctx, program.ID)
	if err != nil {
		return nil, fmt.Errorf("list day plans: %w", err)
	}
	schedule, err := loadSchedule(ctx, s.scheduleRepo, days)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	out := &ProgramDetail{Program: *program, Days: make([]ProgramDay, 0, len(schedule))}
	for _, ds := range schedule {
		day := ProgramDay{ID: ds.Day.ID, DayNumber: ds.Day.DayNumber, Blocks: make([]ProgramBlock, 0, len(ds.Blocks))}
		for _, bs := range ds.Blocks {
			day.Blocks = append(day.Blocks, ProgramBlock{
				ID:        bs.Block.ID,
				Title:     bs.Block.Title,
				Type:      bs.Block.Type,
				Order:     bs.Order,
				Exercises: bs.Exercises,
			})
		}
		out.Days = append(out.Days, day)
	}
	return out, nil
}

// normalizeProgramInput trims text, applies defaults and rejects invalid trees.
func normalizeProgramInput(in *ProgramInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidProgram)
	}

	seen := make(map[int]bool, len(in.Days))
	for di := range in.Days {
		d := &in.Days[di]
		if d.DayNumber <= 0 {
			return fmt.Errorf("%w: dayNumber must be greater than 0", ErrInvalidProgram)
		}
		if seen[d.DayNumber] {
			return fmt.Errorf("%w: day %d is listed twice", ErrInvalidProgram, d.DayNumber)
		}
		seen[d.DayNumber] = true

		for bi := range d.Blocks {
			b := &d.Blocks[bi]
			b.Title = strings.TrimSpace(b.Title)
			if b.Title == "" {
				return fmt.Errorf("%w: day %d: block title is required", ErrInvalidProgram, d.DayNumber)
			}
			if b.Type == "" {
				b.Type = domain.BlockTypeOther
			}
			if !b.Type.Valid() {
				return fmt.Errorf("%w: day %d: unknown block type %q", ErrInvalidProgram, d.DayNumber, b.Type)
			}

			for ei := range b.Exercises {
				e := &b.Exercises[ei]
				e.Name = strings.TrimSpace(e.Name)
				if e.Name == "" {
					return fmt.Errorf("%w: block %q: exercise name is required", ErrInvalidProgram, b.Title)
				}
				if e.Sets == nil {
					one := 1
					e.Sets = &one
				}
				if *e.Sets <= 0 {
					return fmt.Errorf("%w: exercise %q: sets must be greater than 0", ErrInvalidProgram, e.Name)
				}
				if e.Reps != nil && *e.Reps <= 0 {
					return fmt.Errorf("%w: exercise %q: reps must be greater than 0", ErrInvalidProgram, e.Name)
				}
				if e.Time != nil && (*e.Time <= 0 || time.Duration(*e.Time)%time.Second != 0) {
					return fmt.Errorf("%w: exercise %q: time must be a positive whole number of seconds", ErrInvalidProgram, e.Name)
				}
				if e.Type == "" {
					e.Type = domain.BlockTypeOther
				}
				if !e.Type.Valid() {
					return fmt.Errorf("%w: exercise %q: unknown type %q", ErrInvalidProgram, e.Name, e.Type)
				}
			}
		}
	}
	return nil
}

// slug turns a title into a file-name friendly token.
func slug(title string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, title)
	s = strings.Trim(s, "-")
	if s == "" {
		return "program"
	}
	return s
}
