package client_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/adamwoolhether/httper/v2/client"
)

func ExampleBuild() {
	c, err := client.Build(
		client.WithBaseURL("https://api.example.com/v1/"),
		client.WithTimeout(10*time.Second),
		client.WithUserAgent("example/1.0"),
		client.WithThrottle(10, 5),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	_ = c
	fmt.Println("client built")
	// Output: client built
}

func ExampleRequest() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%q,"name":"alice"}`, r.URL.Query().Get("id"))
	}))
	defer srv.Close()

	type user struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	c, err := client.Build(client.WithBaseURL(srv.URL + "/"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	call, err := client.Request[user](c.Get("users").Query("id", "42"), nil)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	resp, err := call.Await(context.Background())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(resp.Code, resp.Data.ID, resp.Data.Name)
	// Output: 200 42 alice
}

func ExampleRequest_callback() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		fmt.Fprint(w, "hello "+r.PostForm.Get("name"))
	}))
	defer srv.Close()

	c, err := client.Build()
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	done := make(chan struct{})
	_, err = client.Request(c.Post(srv.URL).Form("name", "bob"), func(resp *client.Response[string]) {
		defer close(done)
		if resp.Err != nil {
			fmt.Println("error:", resp.Err)
			return
		}
		fmt.Println(resp.Data)
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	<-done
	// Output: hello bob
}

func ExampleClient_CancelTag() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, err := client.Build()
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	call, err := client.Request[string](c.Get(srv.URL).Tag("search"), nil)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("cancelled:", c.CancelTag("search"))

	resp, _ := call.Await(context.Background())
	fmt.Println("code:", resp.Err.Code)
	// Output:
	// cancelled: 1
	// code: -101
}

func ExampleDownloadRequest_Request() {
	content := []byte("file content")
	sum := sha256.Sum256(content)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	dir, err := os.MkdirTemp("", "example-download")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer os.RemoveAll(dir)

	c, err := client.Build(client.WithBaseURL(srv.URL + "/"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	call, err := c.Download("files/data.txt").
		DestIn(dir, "data.txt").
		Checksum(sha256.New(), hex.EncodeToString(sum[:])).
		Request(nil)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	resp, _ := call.Await(context.Background())
	if resp.Err != nil {
		fmt.Println("error:", resp.Err)
		return
	}

	got, _ := os.ReadFile(resp.Data)
	fmt.Println(filepath.Base(resp.Data), string(got))
	// Output: data.txt file content
}

func ExampleUploadRequest() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("doc")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()

		b, _ := io.ReadAll(f)
		fmt.Fprintf(w, "%s %s %s", r.FormValue("owner"), hdr.Filename, b)
	}))
	defer srv.Close()

	dir, err := os.MkdirTemp("", "example-upload")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "report.csv")
	if err := os.WriteFile(path, []byte("a,b"), 0o644); err != nil {
		fmt.Println("error:", err)
		return
	}

	c, err := client.Build()
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	call, err := client.Request[string](c.Upload(srv.URL).Field("owner", "carol").FileWithType("doc", path, "text/csv"), nil)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	resp, _ := call.Await(context.Background())
	fmt.Println(resp.Data)
	// Output: carol report.csv a,b
}

func ExampleClient_With() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	base, err := client.Build(client.WithBaseURL(srv.URL + "/"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	authed, err := base.With(client.WithHeader("Authorization", "Bearer t0ken"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	for _, c := range []*client.Client{base, authed} {
		call, _ := client.Request[string](c.Get(""), nil)
		resp, _ := call.Await(context.Background())
		fmt.Printf("%q\n", resp.Data)
	}
	// Output:
	// ""
	// "Bearer t0ken"
}
