// Package session - агрегат проекта: версии истории, артефакты, пайплайны и их сохранение.
package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyreel/internal/blobstore"
	"storyreel/internal/jobs"
	"storyreel/internal/models"
	"storyreel/internal/notify"
	"storyreel/internal/pipeline"
	"storyreel/internal/provider/imagegen"
	"storyreel/internal/storage"
	"storyreel/internal/storywriter"
)

// StoryWriter - генерация версий истории и улучшение описаний.
type StoryWriter interface {
	Generate(ctx context.Context, prompt string, opts storywriter.Options) (*models.Story, error)
	Improve(ctx context.Context, current *models.Story, notes string) (*models.Story, error)
	Expand(ctx context.Context, current *models.Story) (*models.Story, error)
	EnhanceDescription(ctx context.Context, kind, name, description string) (string, error)
}

// Deps - зависимости, общие для всех сессий.
type Deps struct {
	Writer   StoryWriter
	Images   imagegen.Generator
	Scenes   *pipeline.SceneEngine
	Video    *pipeline.VideoEngine
	Store    storage.Adapter
	Blobs    blobstore.Store // nil, если blob-хранилище не настроено
	Notifier notify.Notifier
	// HTTPClient используется для скачивания сгенерированных изображений.
	HTTPClient    *http.Client
	KeyPrefix     string
	AutoSave      bool
	PersistImages bool
	Logger        *zap.Logger

	Now   func() time.Time
	NewID func() string
}

func (d *Deps) withDefaults() *Deps {
	c := *d
	if c.KeyPrefix == "" {
		c.KeyPrefix = "projects"
	}
	if c.Notifier == nil {
		c.Notifier = notify.Nop{}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	return &c
}

// Session - один проект и операции над ним. Вызовы одной сессии должны быть
// последовательными, Manager.WithSession это обеспечивает.
type Session struct {
	deps    *Deps
	project *models.Project
	logger  *zap.Logger
	onSaved func(ctx context.Context, summary models.ProjectSummary) error
	// deleted выставляет Manager.Delete под блокировкой проекта.
	deleted bool
}

func newSession(deps *Deps, p *models.Project) *Session {
	return &Session{
		deps:    deps,
		project: p,
		logger:  deps.Logger.Named("Session").With(zap.String("project_id", p.ID)),
	}
}

func (s *Session) ID() string   { return s.project.ID }
func (s *Session) Name() string { return s.project.Name }

// Snapshot возвращает независимую копию состояния проекта.
func (s *Session) Snapshot() Snapshot { return toSnapshot(s.project) }

func (s *Session) Summary() models.ProjectSummary { return s.project.Summary() }

func (s *Session) CurrentStory() *models.Story { return s.project.CurrentStory().Clone() }

func (s *Session) key() string {
	return documentKey(s.deps.KeyPrefix, s.project.ID)
}

func documentKey(prefix, id string) string {
	return prefix + "/" + id
}

// Save полностью записывает документ проекта и обновляет индекс.
// Удаленный проект не сохраняется: models.ErrNotFound.
func (s *Session) Save(ctx context.Context) error {
	if s.deleted {
		return fmt.Errorf("save project %s: %w: project deleted", s.project.ID, models.ErrNotFound)
	}
	if err := s.deps.Store.Save(ctx, s.key(), toSnapshot(s.project)); err != nil {
		return fmt.Errorf("save project %s: %w", s.project.ID, err)
	}
	if s.onSaved != nil {
		if err := s.onSaved(ctx, s.project.Summary()); err != nil {
			return fmt.Errorf("update index for project %s: %w", s.project.ID, err)
		}
	}
	s.logger.Debug("Project saved")
	return nil
}

// commit фиксирует изменение: обновляет UpdatedAt и при включенном автосохранении пишет документ.
// Сохранение не отменяется вместе с ctx операции.
func (s *Session) commit(ctx context.Context) error {
	s.project.UpdatedAt = s.deps.Now()
	if !s.deps.AutoSave {
		return nil
	}
	return s.Save(context.WithoutCancel(ctx))
}

func (s *Session) notify(ctx context.Context, ev notify.Event) {
	ev.ProjectID = s.project.ID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.deps.Now()
	}
	if err := s.deps.Notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

// ScenePipelineStale сообщает, что пайплайн сцен построен не из текущей версии истории.
func (s *Session) ScenePipelineStale() bool {
	p := s.project.ScenePipeline
	return p != nil && p.SourceStoryVersionIndex != s.project.CurrentStoryIndex
}

// --- версии истории ---

// GenerateStory создает новую версию истории и заново строит персонажей и сцены.
func (s *Session) GenerateStory(ctx context.Context, prompt string, opts storywriter.Options) (*models.Story, error) {
	story, err := s.deps.Writer.Generate(ctx, prompt, opts)
	if err != nil {
		return nil, fmt.Errorf("generate story for project %s: %w", s.project.ID, err)
	}
	s.appendStory(story)
	s.deriveArtifacts(story)
	return story.Clone(), s.afterStory(ctx, "generate")
}

// ImproveStory создает исправленную версию текущей истории.
func (s *Session) ImproveStory(ctx context.Context, notes string) (*models.Story, error) {
	story, err := s.deps.Writer.Improve(ctx, s.project.CurrentStory(), notes)
	if err != nil {
		return nil, fmt.Errorf("improve story for project %s: %w", s.project.ID, err)
	}
	s.appendStory(story)
	s.deriveArtifacts(story)
	return story.Clone(), s.afterStory(ctx, "improve")
}

// ExpandStory дописывает историю. Существующие артефакты сохраняются,
// добавляются только новые персонажи (по имени) и новые сцены.
func (s *Session) ExpandStory(ctx context.Context) (*models.Story, error) {
	prev := s.project.CurrentStory()
	story, err := s.deps.Writer.Expand(ctx, prev)
	if err != nil {
		return nil, fmt.Errorf("expand story for project %s: %w", s.project.ID, err)
	}
	s.appendStory(story)
	s.extendArtifacts(story, len(prev.Scenes))
	return story.Clone(), s.afterStory(ctx, "expand")
}

func (s *Session) appendStory(story *models.Story) {
	s.project.StoryHistory = append(s.project.StoryHistory, story)
	s.project.CurrentStoryIndex = len(s.project.StoryHistory) - 1
}

func (s *Session) afterStory(ctx context.Context, op string) error {
	st := s.project.CurrentStory()
	s.logger.Info("Story version created",
		zap.String("op", op),
		zap.Int("version", s.project.CurrentStoryIndex),
		zap.Int("scenes", len(st.Scenes)),
	)
	s.notify(ctx, notify.Event{Type: notify.EventStoryVersionCreated, Status: op})
	return s.commit(ctx)
}

func (s *Session) newCharacter(c models.StoryCharacter, now time.Time) models.Character {
	return models.Character{ID: s.deps.NewID(), Name: c.Name, Description: c.Description, CreatedAt: now}
}

func (s *Session) newScene(sc models.StoryScene, pos int, now time.Time) models.SceneArtifact {
	number := sc.Number
	if number == 0 {
		number = pos + 1
	}
	return models.SceneArtifact{ID: s.deps.NewID(), SceneNumber: number, Description: sc.Description, CreatedAt: now}
}

// deriveArtifacts заменяет текущих персонажей и сцены новыми с новыми id.
// Истории старых id остаются.
func (s *Session) deriveArtifacts(story *models.Story) {
	now := s.deps.Now()
	s.project.Characters = nil
	for _, c := range story.Characters {
		ch := s.newCharacter(c, now)
		s.project.Characters = append(s.project.Characters, ch)
		s.project.CharacterHistory.Append(ch.ID, ch)
	}
	s.project.Scenes = nil
	for i, sc := range story.Scenes {
		a := s.newScene(sc, i, now)
		s.project.Scenes = append(s.project.Scenes, a)
		s.project.SceneHistory.Append(a.ID, a)
	}
}

func (s *Session) extendArtifacts(story *models.Story, prevScenes int) {
	now := s.deps.Now()
	known := make(map[string]bool, len(s.project.Characters))
	for _, c := range s.project.Characters {
		known[strings.ToLower(strings.TrimSpace(c.Name))] = true
	}
	for _, c := range story.Characters {
		if known[strings.ToLower(strings.TrimSpace(c.Name))] {
			continue
		}
		ch := s.newCharacter(c, now)
		s.project.Characters = append(s.project.Characters, ch)
		s.project.CharacterHistory.Append(ch.ID, ch)
	}
	for i := prevScenes; i < len(story.Scenes); i++ {
		a := s.newScene(story.Scenes[i], i, now)
		s.project.Scenes = append(s.project.Scenes, a)
		s.project.SceneHistory.Append(a.ID, a)
	}
}

// RevertToStory делает версию i текущей и отбрасывает все более поздние версии.
// Артефакты и пайплайны не меняются, устаревание пайплайна видно через ScenePipelineStale.
func (s *Session) RevertToStory(ctx context.Context, i int) error {
	return s.truncateStories(ctx, "revert", i)
}

// BranchFromHistory продолжает работу от версии i. Более поздние версии отбрасываются так же, как при RevertToStory.
func (s *Session) BranchFromHistory(ctx context.Context, i int) error {
	return s.truncateStories(ctx, "branch", i)
}

func (s *Session) truncateStories(ctx context.Context, op string, i int) error {
	if i < 0 || i >= len(s.project.StoryHistory) {
		return fmt.Errorf("%s project %s to story version %d: %w", op, s.project.ID, i, models.ErrNotFound)
	}
	dropped := len(s.project.StoryHistory) - (i + 1)
	clear(s.project.StoryHistory[i+1:])
	s.project.StoryHistory = s.project.StoryHistory[:i+1]
	s.project.CurrentStoryIndex = i
	s.logger.Info("Story history truncated", zap.String("op", op), zap.Int("version", i), zap.Int("dropped", dropped))
	return s.commit(ctx)
}

// --- персонажи и сцены ---

// CharacterVersions возвращает все версии персонажа в порядке создания.
func (s *Session) CharacterVersions(id string) ([]models.Character, error) {
	vs := s.project.CharacterHistory.Versions(id)
	if len(vs) == 0 {
		return nil, fmt.Errorf("character %s: %w", id, models.ErrNotFound)
	}
	return cloneAll(vs, models.Character.Clone), nil
}

func (s *Session) SceneVersions(id string) ([]models.SceneArtifact, error) {
	vs := s.project.SceneHistory.Versions(id)
	if len(vs) == 0 {
		return nil, fmt.Errorf("scene %s: %w", id, models.ErrNotFound)
	}
	return cloneAll(vs, models.SceneArtifact.Clone), nil
}

func (s *Session) characterIndex(id string) (int, error) {
	for i, c := range s.project.Characters {
		if c.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("character %s: %w", id, models.ErrNotFound)
}

func (s *Session) sceneIndex(id string) (int, error) {
	for i, sc := range s.project.Scenes {
		if sc.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("scene %s: %w", id, models.ErrNotFound)
}

// EnhanceCharacter добавляет версию персонажа с улучшенным описанием.
func (s *Session) EnhanceCharacter(ctx context.Context, id string) (models.Character, error) {
	i, err := s.characterIndex(id)
	if err != nil {
		return models.Character{}, err
	}
	c := s.project.Characters[i].Clone()
	text, err := s.deps.Writer.EnhanceDescription(ctx, "character", c.Name, c.Description)
	if err != nil {
		return models.Character{}, fmt.Errorf("enhance character %s: %w", id, err)
	}
	c.EnhancedDescription = text
	c.CreatedAt = s.deps.Now()
	s.putCharacter(i, c)
	return c.Clone(), s.commit(ctx)
}

// GenerateCharacterImage добавляет версию персонажа с новым изображением.
func (s *Session) GenerateCharacterImage(ctx context.Context, id string) (models.Character, error) {
	i, err := s.characterIndex(id)
	if err != nil {
		return models.Character{}, err
	}
	c := s.project.Characters[i].Clone()
	img, err := s.generateImage(ctx, c.PromptDescription())
	if err != nil {
		return models.Character{}, fmt.Errorf("generate image for character %s: %w", id, err)
	}
	c.Image = img
	c.CreatedAt = s.deps.Now()
	s.putCharacter(i, c)
	return c.Clone(), s.commit(ctx)
}

func (s *Session) putCharacter(i int, c models.Character) {
	s.project.Characters[i] = c
	s.project.CharacterHistory.Append(c.ID, c.Clone())
}

func (s *Session) EnhanceScene(ctx context.Context, id string) (models.SceneArtifact, error) {
	i, err := s.sceneIndex(id)
	if err != nil {
		return models.SceneArtifact{}, err
	}
	sc := s.project.Scenes[i].Clone()
	text, err := s.deps.Writer.EnhanceDescription(ctx, "scene", fmt.Sprintf("Scene %d", sc.SceneNumber), sc.Description)
	if err != nil {
		return models.SceneArtifact{}, fmt.Errorf("enhance scene %s: %w", id, err)
	}
	sc.EnhancedDescription = text
	sc.CreatedAt = s.deps.Now()
	s.putScene(i, sc)
	return sc.Clone(), s.commit(ctx)
}

func (s *Session) GenerateSceneImage(ctx context.Context, id string) (models.SceneArtifact, error) {
	i, err := s.sceneIndex(id)
	if err != nil {
		return models.SceneArtifact{}, err
	}
	sc := s.project.Scenes[i].Clone()
	img, err := s.generateImage(ctx, sc.PromptDescription())
	if err != nil {
		return models.SceneArtifact{}, fmt.Errorf("generate image for scene %s: %w", id, err)
	}
	sc.Image = img
	sc.CreatedAt = s.deps.Now()
	s.putScene(i, sc)
	return sc.Clone(), s.commit(ctx)
}

func (s *Session) putScene(i int, sc models.SceneArtifact) {
	s.project.Scenes[i] = sc
	s.project.SceneHistory.Append(sc.ID, sc.Clone())
}

func (s *Session) generateImage(ctx context.Context, prompt string) (*models.GeneratedImage, error) {
	res, err := s.deps.Images.Generate(ctx, imagegen.Request{Prompt: prompt, Owner: s.project.ID})
	if err != nil {
		return nil, err
	}
	if res.URL == "" {
		return nil, fmt.Errorf("%w: no image url", models.ErrInvalidProviderResponse)
	}
	img := &models.GeneratedImage{URL: res.URL, Prompt: prompt, RevisedPrompt: res.RevisedPrompt, CreatedAt: s.deps.Now()}
	s.persistImage(ctx, img)
	return img, nil
}

// persistImage скачивает изображение в blob-хранилище проекта и подменяет ссылку на постоянную.
// Ошибка скачивания не прерывает операцию: остается ссылка провайдера.
func (s *Session) persistImage(ctx context.Context, img *models.GeneratedImage) {
	if !s.deps.PersistImages || s.deps.Blobs == nil || img == nil || img.Path != "" {
		return
	}
	if strings.HasPrefix(img.URL, s.deps.Blobs.URL("")) {
		return
	}
	data, ext, err := blobstore.Download(ctx, s.deps.HTTPClient, img.URL)
	if err != nil {
		s.logger.Warn("Failed to download generated image", zap.String("url", img.URL), zap.Error(err))
		return
	}
	rel, err := s.deps.Blobs.Put(ctx, s.project.ID, data, ext)
	if err != nil {
		s.logger.Warn("Failed to store generated image", zap.Error(err))
		return
	}
	img.Path = rel
	img.URL = s.deps.Blobs.URL(rel)
}

// --- пайплайн сцен ---

// InitializeScenePipeline строит пайплайн из текущей версии истории, заменяя прежний.
func (s *Session) InitializeScenePipeline(ctx context.Context) (*models.ScenePipeline, error) {
	p, err := s.deps.Scenes.Initialize(s.project.CurrentStory(), s.project.CurrentStoryIndex)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", s.project.ID, err)
	}
	s.project.ScenePipeline = p
	return p.Clone(), s.commit(ctx)
}

func (s *Session) ScenePipeline() *models.ScenePipeline { return s.project.ScenePipeline.Clone() }

func (s *Session) AssignCharacters(ctx context.Context, slotID string, characterIDs []string) error {
	if err := s.deps.Scenes.AssignCharacters(s.project.ScenePipeline, s.project, slotID, characterIDs); err != nil {
		return err
	}
	return s.commit(ctx)
}

func (s *Session) SetSlotDescription(ctx context.Context, slotID string, description *string) error {
	if err := s.deps.Scenes.SetDescriptionOverride(s.project.ScenePipeline, slotID, description); err != nil {
		return err
	}
	return s.commit(ctx)
}

func (s *Session) AddSlot(ctx context.Context, afterSlotID string) (*models.SceneSlot, error) {
	slot, err := s.deps.Scenes.AddSlot(s.project.ScenePipeline, afterSlotID)
	if err != nil {
		return nil, err
	}
	return slot.Clone(), s.commit(ctx)
}

func (s *Session) CloneSlot(ctx context.Context, slotID string) (*models.SceneSlot, error) {
	slot, err := s.deps.Scenes.CloneSlot(s.project.ScenePipeline, slotID)
	if err != nil {
		return nil, err
	}
	return slot.Clone(), s.commit(ctx)
}

func (s *Session) ArchiveSlot(ctx context.Context, slotID string, archived bool) error {
	if err := s.deps.Scenes.ArchiveSlot(s.project.ScenePipeline, slotID, archived); err != nil {
		return err
	}
	return s.commit(ctx)
}

func (s *Session) RemoveSlot(ctx context.Context, slotID string) error {
	if err := s.deps.Scenes.RemoveSlot(s.project.ScenePipeline, slotID); err != nil {
		return err
	}
	return s.commit(ctx)
}

func (s *Session) ReorderSlots(ctx context.Context, ids []string) error {
	if err := s.deps.Scenes.Reorder(s.project.ScenePipeline, ids); err != nil {
		return err
	}
	return s.commit(ctx)
}

// GenerateSlot генерирует изображение слота. Ошибка провайдера остается в слоте.
func (s *Session) GenerateSlot(ctx context.Context, slotID string) (*models.SceneSlot, error) {
	if err := s.deps.Scenes.GenerateSlot(ctx, s.project.ScenePipeline, s.project, slotID, s.project.ID); err != nil {
		return nil, err
	}
	return s.afterSlot(ctx, slotID)
}

// RegenerateSlot сбрасывает слот и генерирует заново.
func (s *Session) RegenerateSlot(ctx context.Context, slotID string) (*models.SceneSlot, error) {
	if err := s.deps.Scenes.RegenerateSlot(ctx, s.project.ScenePipeline, s.project, slotID, s.project.ID); err != nil {
		return nil, err
	}
	return s.afterSlot(ctx, slotID)
}

func (s *Session) afterSlot(ctx context.Context, slotID string) (*models.SceneSlot, error) {
	slot, _ := s.project.ScenePipeline.Slot(slotID)
	s.persistImage(ctx, slot.GeneratedImage)
	ev := notify.Event{Type: notify.EventSlotFinished, SlotID: slotID, Status: string(slot.Status), Error: slot.Error}
	if slot.GeneratedImage != nil {
		ev.URL = slot.GeneratedImage.URL
	}
	s.notify(ctx, ev)
	return slot.Clone(), s.commit(ctx)
}

// GenerateAllPendingSlots генерирует все pending-слоты по очереди и возвращает обновленные слоты.
// Сохранение - после каждого слота, чтобы прерванный пакет не терял готовые изображения.
func (s *Session) GenerateAllPendingSlots(ctx context.Context) ([]*models.SceneSlot, error) {
	updated, err := s.deps.Scenes.GenerateAllPending(ctx, s.project.ScenePipeline, s.project, s.project.ID,
		func(slot *models.SceneSlot) error {
			_, err := s.afterSlot(ctx, slot.ID)
			return err
		})
	if err != nil {
		return updated, fmt.Errorf("project %s: %w", s.project.ID, err)
	}
	s.logger.Info("Pending slots processed", zap.Int("count", len(updated)))
	return updated, nil
}

// --- видео ---

// InitializeVideoPipeline снимает миниатюры с готовых слотов. Пустой title - заголовок текущей истории.
func (s *Session) InitializeVideoPipeline(ctx context.Context, title string) (*models.VideoPipeline, error) {
	if title == "" {
		if st := s.project.CurrentStory(); st != nil {
			title = st.Title
		}
	}
	vp, err := s.deps.Video.Initialize(s.project.ScenePipeline, title)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", s.project.ID, err)
	}
	s.project.VideoPipeline = vp
	return vp.Clone(), s.commit(ctx)
}

func (s *Session) VideoPipeline() *models.VideoPipeline { return s.project.VideoPipeline.Clone() }

// GenerateVideo отправляет видео-задачу. Состояние failed сохраняется и при ошибке отправки.
func (s *Session) GenerateVideo(ctx context.Context, opts pipeline.GenerateOptions) (*models.VideoPipeline, error) {
	vp := s.project.VideoPipeline
	genErr := s.deps.Video.Generate(ctx, vp, opts)
	if vp == nil {
		return nil, genErr
	}
	if genErr == nil {
		s.notify(ctx, notify.Event{Type: notify.EventVideoSubmitted, JobID: vp.CurrentJobID, Provider: string(vp.Provider), Status: string(vp.Status)})
	}
	if err := s.commit(ctx); err != nil && genErr == nil {
		return nil, err
	}
	if genErr != nil {
		return vp.Clone(), fmt.Errorf("project %s: %w", s.project.ID, genErr)
	}
	return vp.Clone(), nil
}

// CheckVideoStatus выполняет один опрос видео-задачи.
func (s *Session) CheckVideoStatus(ctx context.Context) (*models.VideoPipeline, error) {
	vp := s.project.VideoPipeline
	before := statusOf(vp)
	if _, err := s.deps.Video.CheckStatus(ctx, vp); err != nil {
		return nil, fmt.Errorf("project %s: %w", s.project.ID, err)
	}
	s.afterVideo(ctx, before)
	return vp.Clone(), s.commit(ctx)
}

// WaitForVideo ждет завершения видео-задачи. При таймауте пайплайн остается в generating.
func (s *Session) WaitForVideo(ctx context.Context, opts jobs.WaitOptions) (*models.VideoPipeline, error) {
	vp := s.project.VideoPipeline
	before := statusOf(vp)
	waitErr := s.deps.Video.WaitForCompletion(ctx, vp, opts)
	if vp == nil {
		return nil, waitErr
	}
	s.afterVideo(context.WithoutCancel(ctx), before)
	if err := s.commit(ctx); err != nil && waitErr == nil {
		return nil, err
	}
	if waitErr != nil {
		return vp.Clone(), fmt.Errorf("project %s: %w", s.project.ID, waitErr)
	}
	return vp.Clone(), nil
}

func statusOf(vp *models.VideoPipeline) models.VideoStatus {
	if vp == nil {
		return ""
	}
	return vp.Status
}

func (s *Session) afterVideo(ctx context.Context, before models.VideoStatus) {
	vp := s.project.VideoPipeline
	if vp.Status == before {
		return
	}
	switch vp.Status {
	case models.VideoCompleted:
		ev := notify.Event{Type: notify.EventVideoCompleted, JobID: vp.CurrentJobID, Provider: string(vp.Provider), Status: string(vp.Status), Progress: vp.Progress}
		if vp.ResultVideo != nil {
			ev.URL = vp.ResultVideo.URL
		}
		s.notify(ctx, ev)
	case models.VideoFailed:
		s.notify(ctx, notify.Event{Type: notify.EventVideoFailed, JobID: vp.CurrentJobID, Provider: string(vp.Provider), Status: string(vp.Status), Error: vp.Error})
	}
}

// ResetVideo возвращает видео-пайплайн в idle.
func (s *Session) ResetVideo(ctx context.Context) (*models.VideoPipeline, error) {
	if err := s.deps.Video.Reset(s.project.VideoPipeline); err != nil {
		return nil, fmt.Errorf("project %s: %w", s.project.ID, err)
	}
	return s.project.VideoPipeline.Clone(), s.commit(ctx)
}
