package syllabus

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/moocmirror/mooc-mirror/internal/model"
)

// onDemandCourse is the current nested format. Modules, lessons and items
// arrive as flat arrays cross-linked by id, with platform ordering keys
// that are frequently non-contiguous.
type onDemandCourse struct {
	Elements []onDemandElement `json:"elements"`
	Linked   onDemandLinked    `json:"linked"`
}

type onDemandElement struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type onDemandLinked struct {
	Modules []json.RawMessage `json:"courseMaterialModules.v1"`
	Lessons []json.RawMessage `json:"courseMaterialLessons.v1"`
	Items   []json.RawMessage `json:"courseMaterialItems.v2"`
}

type onDemandModule struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Order int    `json:"moduleOrder"`
}

type onDemandLesson struct {
	ID       string `json:"id"`
	ModuleID string `json:"moduleId"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Order    int    `json:"lessonOrder"`
}

type onDemandItem struct {
	ID           string          `json:"id"`
	LessonID     string          `json:"lessonId"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	TypeName     string          `json:"typeName"`
	Order        int             `json:"itemOrder"`
	LockedStatus string          `json:"lockedStatus"`
	Assets       []onDemandAsset `json:"assets"`
}

type onDemandAsset struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	TypeName  string `json:"typeName"`
	Extension string `json:"fileExtension"`
	Name      string `json:"name"`
}

func normalizeOnDemand(raw []byte, log zerolog.Logger) (*model.CourseNode, error) {
	var course onDemandCourse
	if err := json.Unmarshal(raw, &course); err != nil {
		return nil, &model.StructureError{Reason: "on-demand payload is not valid JSON", Err: err}
	}
	if len(course.Elements) == 0 {
		return nil, &model.StructureError{Reason: "on-demand payload has no course element"}
	}

	element := course.Elements[0]
	title := element.Name
	if title == "" {
		title = element.Slug
	}
	root := &model.CourseNode{
		Kind:  model.KindCourse,
		ID:    element.ID,
		Title: title,
		Order: 1,
	}

	// Group lessons and items under their parents first; the flat arrays
	// arrive in no particular order.
	lessonsByModule := make(map[string][]orderable)
	for i, rawLesson := range course.Linked.Lessons {
		var lesson onDemandLesson
		if err := json.Unmarshal(rawLesson, &lesson); err != nil || lesson.ID == "" {
			log.Warn().Int("lesson", i).Err(err).Msg("skipping unparseable lesson")
			continue
		}
		node := &model.CourseNode{
			Kind:  model.KindLesson,
			ID:    lesson.ID,
			Title: lesson.Name,
		}
		lessonsByModule[lesson.ModuleID] = append(lessonsByModule[lesson.ModuleID],
			orderable{key: lesson.Order, pos: i, node: node})
	}

	itemsByLesson := make(map[string][]orderable)
	for i, rawItem := range course.Linked.Items {
		var item onDemandItem
		if err := json.Unmarshal(rawItem, &item); err != nil || item.ID == "" {
			log.Warn().Int("item", i).Err(err).Msg("replacing unparseable item with placeholder")
			// Parent unknown; attach the placeholder to the lesson named
			// by whatever fragment did parse, or drop it if none did.
			var partial struct {
				LessonID string `json:"lessonId"`
			}
			if json.Unmarshal(rawItem, &partial) == nil && partial.LessonID != "" {
				itemsByLesson[partial.LessonID] = append(itemsByLesson[partial.LessonID],
					orderable{key: 1 << 30, pos: i, node: placeholder(0)})
			}
			continue
		}
		itemsByLesson[item.LessonID] = append(itemsByLesson[item.LessonID],
			orderable{key: item.Order, pos: i, node: onDemandItemNode(item)})
	}

	modules := make([]orderable, 0, len(course.Linked.Modules))
	for i, rawModule := range course.Linked.Modules {
		var module onDemandModule
		if err := json.Unmarshal(rawModule, &module); err != nil || module.ID == "" {
			log.Warn().Int("module", i).Err(err).Msg("skipping unparseable module")
			continue
		}
		node := &model.CourseNode{
			Kind:  model.KindModule,
			ID:    module.ID,
			Title: module.Name,
		}
		for _, lesson := range lessonsByModule[module.ID] {
			lesson.node.Children = assignOrder(itemsByLesson[lesson.node.ID])
		}
		node.Children = assignOrder(lessonsByModule[module.ID])
		modules = append(modules, orderable{key: module.Order, pos: i, node: node})
	}
	root.Children = assignOrder(modules)

	if len(root.Children) == 0 {
		return nil, &model.StructureError{Reason: "on-demand payload has no modules"}
	}

	return root, nil
}

// locked interprets the platform's lockedStatus field. Absence means
// open; any status other than an explicit unlock means the content is
// gated.
func locked(status string) bool {
	return status != "" && !strings.EqualFold(status, "UNLOCKED")
}

func onDemandItemNode(item onDemandItem) *model.CourseNode {
	node := &model.CourseNode{
		Kind:     model.KindItem,
		ID:       item.ID,
		Title:    item.Name,
		TypeName: item.TypeName,
	}

	if locked(item.LockedStatus) {
		node.Locked = true
		node.Deferred = true
		return node
	}

	if len(item.Assets) == 0 {
		// Items that ship without inline assets (lecture videos, peer
		// reviewed assignments) need a secondary content fetch.
		node.Deferred = true
		return node
	}

	for _, asset := range item.Assets {
		if asset.URL == "" {
			continue
		}
		node.SourceRefs = append(node.SourceRefs, model.SourceRef{
			ID:     asset.ID,
			URL:    asset.URL,
			Kind:   assetKind(asset),
			Format: strings.ToLower(strings.TrimPrefix(asset.Extension, ".")),
			Title:  asset.Name,
		})
	}
	sortRefs(node.SourceRefs)

	return node
}

func assetKind(asset onDemandAsset) model.ResourceKind {
	switch strings.ToLower(asset.TypeName) {
	case "video":
		return model.ResourceVideo
	case "subtitle":
		return model.ResourceSubtitle
	case "transcript":
		return model.ResourceTranscript
	case "slides":
		return model.ResourceSlides
	case "notebook":
		return model.ResourceNotebook
	case "image":
		return model.ResourceImage
	default:
		return model.KindForFormat(asset.Extension)
	}
}
