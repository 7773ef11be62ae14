package api

import (
	"net/http"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(indexHTML))
}

// indexHTML is the generator page. Every edit posts the whole form to
// /render; responses from requests older than the latest one are dropped.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>QR Studio</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
    background: #0a0a0a;
    color: #e0e0e0;
    display: flex;
    justify-content: center;
    min-height: 100vh;
    padding: 32px 16px;
  }
  .card {
    background: #1a1a1a;
    border: 1px solid #333;
    border-radius: 16px;
    padding: 32px;
    max-width: 860px;
    width: 100%;
    display: grid;
    grid-template-columns: 1fr 320px;
    gap: 32px;
  }
  h1 { font-size: 20px; font-weight: 600; margin-bottom: 16px; }
  label { display: block; font-size: 13px; color: #888; margin: 10px 0 4px; }
  input, select, textarea {
    width: 100%;
    background: #0f0f0f;
    color: #e0e0e0;
    border: 1px solid #333;
    border-radius: 8px;
    padding: 8px;
    font-size: 14px;
  }
  input[type=color] { height: 36px; padding: 2px; }
  .row { display: grid; grid-template-columns: 1fr 1fr; gap: 12px; }
  .fields { display: none; }
  .fields.active { display: block; }
  #preview {
    width: 280px; height: 280px;
    margin: 0 auto 16px;
    display: flex;
    align-items: center;
    justify-content: center;
    background: #fff;
    border-radius: 12px;
    overflow: hidden;
  }
  #preview img, #preview svg { max-width: 260px; max-height: 260px; }
  .placeholder { color: #888; font-size: 13px; }
  #status { font-size: 13px; color: #888; min-height: 18px; text-align: center; }
  .error { color: #f87171 !important; }
  .actions { display: flex; gap: 8px; margin-top: 16px; }
  button {
    flex: 1;
    background: #262626;
    color: #e0e0e0;
    border: 1px solid #333;
    border-radius: 8px;
    padding: 10px;
    font-size: 14px;
    cursor: pointer;
  }
  button:disabled { opacity: 0.4; cursor: default; }
  button.remove { margin-top: 6px; width: 100%; padding: 6px; font-size: 13px; }
</style>
</head>
<body>
<form class="card" id="form" onsubmit="return false">
  <div>
    <h1>QR Studio</h1>
    <label for="kind">Content</label>
    <select id="kind" name="kind">
      <option value="text">Text</option>
      <option value="url">URL</option>
      <option value="email">Email</option>
      <option value="phone">Phone</option>
      <option value="sms">SMS</option>
      <option value="wifi">WiFi</option>
    </select>

    <div class="fields" data-kind="text">
      <label for="text">Text</label>
      <textarea id="text" name="text" rows="3"></textarea>
    </div>
    <div class="fields" data-kind="url">
      <label for="url">URL</label>
      <input id="url" name="url" type="text" placeholder="https://example.com">
    </div>
    <div class="fields" data-kind="email">
      <label for="email">Address</label>
      <input id="email" name="email" type="text">
      <label for="email_subject">Subject</label>
      <input id="email_subject" name="email_subject" type="text">
      <label for="email_body">Body</label>
      <textarea id="email_body" name="email_body" rows="3"></textarea>
    </div>
    <div class="fields" data-kind="phone">
      <label for="phone">Number</label>
      <input id="phone" name="phone" type="text">
    </div>
    <div class="fields" data-kind="sms">
      <label for="sms_number">Number</label>
      <input id="sms_number" name="sms_number" type="text">
      <label for="sms_message">Message</label>
      <textarea id="sms_message" name="sms_message" rows="3"></textarea>
    </div>
    <div class="fields" data-kind="wifi">
      <label for="wifi_ssid">Network name</label>
      <input id="wifi_ssid" name="wifi_ssid" type="text">
      <label for="wifi_password">Password</label>
      <input id="wifi_password" name="wifi_password" type="text">
      <label for="wifi_type">Security</label>
      <select id="wifi_type" name="wifi_type">
        <option value="WPA2" selected>WPA2</option>
        <option value="WPA">WPA</option>
        <option value="WEP">WEP</option>
        <option value="nopass">None</option>
      </select>
    </div>

    <div class="row">
      <div>
        <label for="size">Size (px)</label>
        <input id="size" name="size" type="number" min="100" max="1000" value="256">
      </div>
      <div>
        <label for="margin">Margin (modules)</label>
        <input id="margin" name="margin" type="number" min="0" max="10" value="4">
      </div>
    </div>
    <div class="row">
      <div>
        <label for="foreground">Foreground</label>
        <input id="foreground" name="foreground" type="color" value="#000000">
      </div>
      <div>
        <label for="background">Background</label>
        <input id="background" name="background" type="color" value="#ffffff">
      </div>
    </div>
    <div class="row">
      <div>
        <label for="error_correction">Error correction</label>
        <select id="error_correction" name="error_correction">
          <option value="L">L (7%)</option>
          <option value="M" selected>M (15%)</option>
          <option value="Q">Q (25%)</option>
          <option value="H">H (30%)</option>
        </select>
      </div>
      <div>
        <label for="format">Format</label>
        <select id="format" name="format">
          <option value="png" selected>PNG</option>
          <option value="jpeg">JPEG</option>
          <option value="svg">SVG</option>
        </select>
      </div>
    </div>
    <div class="row">
      <div>
        <label for="logo">Logo</label>
        <input id="logo" name="logo" type="file" accept="image/*">
        <button type="button" id="remove_logo" class="remove" disabled>Remove logo</button>
      </div>
      <div>
        <label for="logo_size">Logo size (%)</label>
        <input id="logo_size" name="logo_size" type="range" min="10" max="40" value="25">
      </div>
    </div>
  </div>

  <div>
    <div id="preview"><span class="placeholder">Enter content to generate a code</span></div>
    <div id="status"></div>
    <div class="actions">
      <button type="button" id="download" disabled>Download</button>
      <button type="button" id="copy" disabled>Copy</button>
      <button type="button" id="reset">Reset</button>
    </div>
  </div>
</form>
<script>
(function() {
  var form = document.getElementById('form');
  var preview = document.getElementById('preview');
  var statusEl = document.getElementById('status');
  var downloadBtn = document.getElementById('download');
  var copyBtn = document.getElementById('copy');
  var resetBtn = document.getElementById('reset');
  var logoInput = document.getElementById('logo');
  var removeLogoBtn = document.getElementById('remove_logo');
  var inputFields = ['text', 'url', 'email', 'email_subject', 'email_body', 'phone',
    'sms_number', 'sms_message', 'wifi_ssid', 'wifi_password', 'wifi_type'];

  var logo = '';
  var current = null;
  var latest = 0;

  function value(id) { return document.getElementById(id).value; }

  function clearChildren(el) {
    while (el.firstChild) el.removeChild(el.firstChild);
  }

  function setStatus(text, isError) {
    statusEl.textContent = text;
    statusEl.className = isError ? 'error' : '';
  }

  function showKind() {
    var kind = value('kind');
    var groups = document.querySelectorAll('.fields');
    for (var i = 0; i < groups.length; i++) {
      groups[i].className = groups[i].getAttribute('data-kind') === kind ? 'fields active' : 'fields';
    }
  }

  function request() {
    var input = {};
    inputFields.forEach(function(id) { input[id] = value(id); });
    var body = {
      kind: value('kind'),
      input: input,
      options: {
        size: parseInt(value('size'), 10),
        margin: parseInt(value('margin'), 10),
        foreground: value('foreground'),
        background: value('background'),
        error_correction: value('error_correction'),
        format: value('format')
      },
      logo_size: parseInt(value('logo_size'), 10)
    };
    if (logo) body.logo = logo;
    return body;
  }

  function showCode(code) {
    current = code;
    clearChildren(preview);
    if (!code) {
      var span = document.createElement('span');
      span.className = 'placeholder';
      span.textContent = 'Enter content to generate a code';
      preview.appendChild(span);
    } else if (code.svg) {
      var doc = new DOMParser().parseFromString(code.svg, 'image/svg+xml');
      preview.appendChild(document.importNode(doc.documentElement, true));
    } else {
      var img = document.createElement('img');
      img.setAttribute('alt', 'QR Code');
      img.setAttribute('src', code.data_url);
      preview.appendChild(img);
    }
    downloadBtn.disabled = !code;
    copyBtn.disabled = !code;
  }

  function render() {
    var id = ++latest;
    fetch('/render', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(request())
    })
      .then(function(r) { return r.json(); })
      .then(function(data) {
        if (id !== latest) return;
        if (data.status === 'ready') {
          showCode(data);
          setStatus(data.width + ' x ' + data.height + ' ' + data.format.toUpperCase(), false);
        } else if (data.status === 'empty') {
          showCode(null);
          setStatus('', false);
        } else {
          if (!data.error_source) showCode(null);
          setStatus(data.error || 'Render failed', true);
        }
      })
      .catch(function() {
        if (id === latest) setStatus('Connection error', true);
      });
  }

  function download() {
    fetch('/render/download', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(request())
    })
      .then(function(r) {
        if (!r.ok) throw new Error('download failed');
        return r.blob();
      })
      .then(function(blob) {
        var a = document.createElement('a');
        a.href = URL.createObjectURL(blob);
        a.download = 'qrcode.' + current.format;
        document.body.appendChild(a);
        a.click();
        document.body.removeChild(a);
        URL.revokeObjectURL(a.href);
      })
      .catch(function(err) { setStatus(err.message, true); });
  }

  function copy() {
    if (!navigator.clipboard) {
      setStatus('Clipboard is unavailable', true);
      return;
    }
    var done;
    if (current.svg) {
      done = navigator.clipboard.writeText(current.svg);
    } else {
      done = fetch(current.data_url)
        .then(function(r) { return r.blob(); })
        .then(function(blob) {
          var item = {};
          item[blob.type] = blob;
          return navigator.clipboard.write([new ClipboardItem(item)]);
        });
    }
    done
      .then(function() { setStatus('Copied to clipboard', false); })
      .catch(function() { setStatus('Copy failed', true); });
  }

  function setLogo(data) {
    logo = data;
    removeLogoBtn.disabled = !logo;
  }

  logoInput.addEventListener('change', function() {
    var file = logoInput.files[0];
    if (!file) {
      setLogo('');
      render();
      return;
    }
    var reader = new FileReader();
    reader.onload = function() {
      setLogo(String(reader.result).split(',')[1] || '');
      render();
    };
    reader.readAsDataURL(file);
  });

  removeLogoBtn.addEventListener('click', function() {
    logoInput.value = '';
    setLogo('');
    render();
  });

  resetBtn.addEventListener('click', function() {
    form.reset();
    setLogo('');
    latest++;
    showKind();
    showCode(null);
    setStatus('', false);
  });

  form.addEventListener('input', function(e) {
    if (e.target === logoInput) return;
    if (e.target.id === 'kind') showKind();
    render();
  });
  downloadBtn.addEventListener('click', download);
  copyBtn.addEventListener('click', copy);

  showKind();
})();
</script>
</body>
</html>`
