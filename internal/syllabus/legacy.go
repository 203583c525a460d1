package syllabus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/moocmirror/mooc-mirror/internal/model"
)

// legacyCourse is the old linear listing. Sections and lectures are kept as
// raw messages so one malformed entry cannot sink its siblings.
type legacyCourse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Sections []json.RawMessage `json:"sections"`
}

type legacySection struct {
	Title    string            `json:"title"`
	Lectures []json.RawMessage `json:"lectures"`
}

type legacyLecture struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Locked bool   `json:"locked"`

	// Resources maps a format ("mp4", "pdf", "srt") to a list of
	// [url, title] pairs, mirroring what the legacy listing page embeds.
	Resources map[string][][]string `json:"resources"`
}

func normalizeLegacy(raw []byte, log zerolog.Logger) (*model.CourseNode, error) {
	var course legacyCourse
	if err := json.Unmarshal(raw, &course); err != nil {
		return nil, &model.StructureError{Reason: "legacy listing is not valid JSON", Err: err}
	}
	if course.ID == "" && course.Name == "" {
		return nil, &model.StructureError{Reason: "legacy listing has no course identity"}
	}

	root := &model.CourseNode{
		Kind:  model.KindCourse,
		ID:    course.ID,
		Title: course.Name,
		Order: 1,
	}

	// The legacy format has no lesson level: sections map to modules and
	// lectures directly to items.
	sections := make([]orderable, 0, len(course.Sections))
	for i, rawSection := range course.Sections {
		var section legacySection
		if err := json.Unmarshal(rawSection, &section); err != nil {
			log.Warn().Int("section", i).Err(err).Msg("skipping unparseable section")
			sections = append(sections, orderable{key: i, pos: i, node: placeholder(i + 1)})
			continue
		}

		moduleNode := &model.CourseNode{
			Kind:  model.KindModule,
			Title: section.Title,
		}

		lectures := make([]orderable, 0, len(section.Lectures))
		for j, rawLecture := range section.Lectures {
			var lecture legacyLecture
			if err := json.Unmarshal(rawLecture, &lecture); err != nil {
				log.Warn().Int("lecture", j).Err(err).Msg("skipping unparseable lecture")
				lectures = append(lectures, orderable{key: j, pos: j, node: placeholder(j + 1)})
				continue
			}
			lectures = append(lectures, orderable{key: j, pos: j, node: legacyLectureNode(course.ID, lecture)})
		}
		moduleNode.Children = assignOrder(lectures)

		sections = append(sections, orderable{key: i, pos: i, node: moduleNode})
	}
	root.Children = assignOrder(sections)

	return root, nil
}

func legacyLectureNode(courseID string, lecture legacyLecture) *model.CourseNode {
	node := &model.CourseNode{
		Kind:     model.KindItem,
		ID:       fmt.Sprintf("%d", lecture.ID),
		Title:    lecture.Title,
		TypeName: "lecture",
		Locked:   lecture.Locked,
	}

	if lecture.Locked {
		// Resolution of a locked lecture's payload is deferred until its
		// content is explicitly requested.
		node.Deferred = true
		return node
	}

	for format, pairs := range lecture.Resources {
		format = strings.ToLower(format)
		for _, pair := range pairs {
			if len(pair) == 0 || pair[0] == "" {
				continue
			}
			ref := model.SourceRef{
				URL:    pair[0],
				Kind:   model.KindForFormat(format),
				Format: format,
			}
			if len(pair) > 1 {
				ref.Title = pair[1]
			}
			node.SourceRefs = append(node.SourceRefs, ref)
		}
	}
	sortRefs(node.SourceRefs)

	return node
}
