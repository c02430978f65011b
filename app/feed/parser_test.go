package feed

import (
	"testing"
)

const forumFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Chief Delphi - Latest topics</title>
    <link>https://www.chiefdelphi.com/latest</link>
    <description>Latest topics</description>
    <item>
      <title>Swerve drive odometry drift</title>
      <dc:creator>Jane Doe</dc:creator>
      <description>&lt;p&gt;Our robot drifts during auto. &lt;img src="https://cdn.example.com/photo.png"&gt;&lt;/p&gt;</description>
      <link>https://www.chiefdelphi.com/t/swerve-drive-odometry-drift/481234</link>
      <pubDate>Fri, 14 Mar 2025 10:00:00 +0000</pubDate>
      <guid isPermaLink="false">chiefdelphi.com-topic-481234</guid>
    </item>
    <item>
      <title>Motor controller firmware update</title>
      <dc:creator>Sam Smith</dc:creator>
      <description>&lt;p&gt;New firmware is out.&lt;/p&gt;</description>
      <link>https://www.chiefdelphi.com/t/motor-controller-firmware-update/481235</link>
      <pubDate>Fri, 14 Mar 2025 11:00:00 +0000</pubDate>
      <guid isPermaLink="false">chiefdelphi.com-topic-481235</guid>
    </item>
  </channel>
</rss>`

func TestParserRun(t *testing.T) {
	parser := NewParser()
	posts, err := parser.Run([]byte(forumFeed))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got: %d", len(posts))
	}

	post := posts[0]
	if post.ID != "481234" {
		t.Errorf("Expected ID '481234', got '%s'", post.ID)
	}
	if post.Title != "Swerve drive odometry drift" {
		t.Errorf("Expected title 'Swerve drive odometry drift', got '%s'", post.Title)
	}
	if post.Author != "Jane Doe" {
		t.Errorf("Expected author 'Jane Doe', got '%s'", post.Author)
	}
	if post.ThreadURL != "https://www.chiefdelphi.com/t/swerve-drive-odometry-drift/481234" {
		t.Errorf("Unexpected thread URL: %s", post.ThreadURL)
	}
	if post.PublishedAt.IsZero() {
		t.Error("Expected published timestamp to be parsed")
	}

	// Preview keeps the raw markup; stripping it is the caller's concern.
	if post.Preview != `<p>Our robot drifts during auto. <img src="https://cdn.example.com/photo.png"></p>` {
		t.Errorf("Expected raw markup preview, got '%s'", post.Preview)
	}

	// Feed order is preserved.
	if posts[1].ID != "481235" {
		t.Errorf("Expected second post ID '481235', got '%s'", posts[1].ID)
	}
}

func TestParserRunMalformed(t *testing.T) {
	parser := NewParser()
	if _, err := parser.Run([]byte("this is not a feed")); err == nil {
		t.Error("Expected error for malformed feed body")
	}
}

func TestPostID(t *testing.T) {
	tests := []struct {
		guid string
		want string
	}{
		{"chiefdelphi.com-topic-481234", "481234"},
		{"topic-99", "99"},
		{"12345", "12345"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := PostID(tt.guid); got != tt.want {
			t.Errorf("PostID(%q) = %q, want %q", tt.guid, got, tt.want)
		}
	}
}
