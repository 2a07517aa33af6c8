package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/example/venueboard/internal/remote"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, string, int64) {
	t.Helper()
	srv := New(nil, "test-secret")
	member := srv.Store.AddMember("mina")
	token, err := srv.MintToken(member, "mina")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts, token, member
}

func doJSON(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()
	var payload *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		payload = bytes.NewReader(b)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestAuthRequired(t *testing.T) {
	_, ts, _, _ := newTestServer(t)

	if code := doJSON(t, http.MethodGet, ts.URL+"/posts", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: %d", code)
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/posts/1/like", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad token toggle: %d", code)
	}
}

func TestLoginMintsUsableToken(t *testing.T) {
	_, ts, _, _ := newTestServer(t)

	var login struct {
		Token    string `json:"token"`
		MemberID int64  `json:"memberId"`
	}
	code := doJSON(t, http.MethodPost, ts.URL+"/dev/login", "", map[string]string{"nickname": "haru"}, &login)
	if code != http.StatusOK || login.Token == "" || login.MemberID == 0 {
		t.Fatalf("login: code=%d resp=%+v", code, login)
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/posts", login.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("token rejected: %d", code)
	}
}

func TestLikeToggleIsIdempotent(t *testing.T) {
	srv, ts, token, _ := newTestServer(t)
	author := srv.Store.AddMember("haru")
	postID := srv.Store.AddPost("free", author, "t", "c")

	var res struct {
		Liked bool `json:"liked"`
		Likes int  `json:"likes"`
	}
	u := ts.URL + "/posts/" + itoa(postID) + "/like"
	doJSON(t, http.MethodPost, u, token, nil, &res)
	if !res.Liked || res.Likes != 1 {
		t.Fatalf("like: %+v", res)
	}
	doJSON(t, http.MethodPost, u, token, nil, &res)
	if res.Likes != 1 {
		t.Fatalf("double like counted twice: %+v", res)
	}
	doJSON(t, http.MethodDelete, u, token, nil, &res)
	if res.Liked || res.Likes != 0 {
		t.Fatalf("unlike: %+v", res)
	}
	doJSON(t, http.MethodDelete, u, token, nil, &res)
	if res.Likes != 0 {
		t.Fatalf("double unlike went negative: %+v", res)
	}
}

func TestCommentPaginationLastFlag(t *testing.T) {
	srv, ts, token, member := newTestServer(t)
	postID := srv.Store.AddPost("free", member, "t", "c")
	for i := 0; i < 3; i++ {
		if _, err := srv.Store.CreateComment(member, remote.CreateCommentRequest{PostID: postID, Content: "c"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var page remote.CommentPage
	doJSON(t, http.MethodGet, ts.URL+"/comments?postId="+itoa(postID)+"&page=1&size=2", token, nil, &page)
	if len(page.Content) != 2 || page.Last {
		t.Fatalf("page 1: len=%d last=%v", len(page.Content), page.Last)
	}
	doJSON(t, http.MethodGet, ts.URL+"/comments?postId="+itoa(postID)+"&page=2&size=2", token, nil, &page)
	if len(page.Content) != 1 || !page.Last {
		t.Fatalf("page 2: len=%d last=%v", len(page.Content), page.Last)
	}
}

func TestCreateReplyToReplyClamped(t *testing.T) {
	srv, _, _, member := newTestServer(t)
	postID := srv.Store.AddPost("free", member, "t", "c")

	root, _ := srv.Store.CreateComment(member, remote.CreateCommentRequest{PostID: postID, Content: "root"})
	reply, _ := srv.Store.CreateComment(member, remote.CreateCommentRequest{PostID: postID, ParentID: &root.ID, Content: "reply"})
	deep, err := srv.Store.CreateComment(member, remote.CreateCommentRequest{PostID: postID, ParentID: &reply.ID, Content: "deep"})
	if err != nil {
		t.Fatalf("deep reply: %v", err)
	}
	if deep.ParentID == nil || *deep.ParentID != root.ID {
		t.Fatalf("deep reply not clamped to root: %+v", deep.ParentID)
	}
}

func TestDeleteRootCascades(t *testing.T) {
	srv, _, _, member := newTestServer(t)
	postID := srv.Store.AddPost("free", member, "t", "c")
	root, _ := srv.Store.CreateComment(member, remote.CreateCommentRequest{PostID: postID, Content: "root"})
	_, _ = srv.Store.CreateComment(member, remote.CreateCommentRequest{PostID: postID, ParentID: &root.ID, Content: "reply"})

	if err := srv.Store.DeleteComment(member, root.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	comments, _, err := srv.Store.ListComments(member, postID, 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("cascade missed replies: %+v", comments)
	}
}

func TestDeleteForbiddenForNonAuthor(t *testing.T) {
	srv, _, _, member := newTestServer(t)
	other := srv.Store.AddMember("haru")
	postID := srv.Store.AddPost("free", other, "t", "c")
	c, _ := srv.Store.CreateComment(other, remote.CreateCommentRequest{PostID: postID, Content: "theirs"})

	if err := srv.Store.DeleteComment(member, c.ID); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAnonymousCommentMasksAuthor(t *testing.T) {
	srv, _, _, member := newTestServer(t)
	postID := srv.Store.AddPost("free", member, "t", "c")
	c, _ := srv.Store.CreateComment(member, remote.CreateCommentRequest{PostID: postID, Content: "shy", Anonymous: true})

	if c.AuthorID != "anonymous" {
		t.Fatalf("anonymous author leaked: %q", c.AuthorID)
	}
	if !c.IsAuthor {
		t.Fatal("isAuthor must still be computed for the author's own view")
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
